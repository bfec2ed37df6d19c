// Command review is a terminal front end for the candidate review API. It
// lists the candidates of a video, records a decision for a set of offers
// and optionally submits approved offers to ad groups, then polls the
// insertion outcomes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/xelth-com/shopvidgo/internal/analysis"
	"github.com/xelth-com/shopvidgo/internal/apiclient"
	"github.com/xelth-com/shopvidgo/internal/models"
	"github.com/xelth-com/shopvidgo/internal/selection"
	"github.com/xelth-com/shopvidgo/internal/submission"
)

type options struct {
	apiURL       string
	email        string
	password     string
	video        string
	offers       string
	status       string
	submit       bool
	destinations string
	cpc          float64
	pollEvery    time.Duration
	pollFor      time.Duration
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.apiURL, "api", envOr("REVIEW_API_URL", "http://localhost:8080"), "review API base URL")
	flag.StringVar(&o.email, "email", os.Getenv("REVIEWER_EMAIL"), "reviewer email")
	flag.StringVar(&o.password, "password", os.Getenv("REVIEWER_PASSWORD"), "reviewer password")
	flag.StringVar(&o.video, "video", "", "video analysis uuid")
	flag.StringVar(&o.offers, "offers", "", "comma separated offer ids to act on; empty lists the candidates")
	flag.StringVar(&o.status, "status", string(models.StatusApproved), "status to record: APPROVED, DISAPPROVED or UNREVIEWED")
	flag.BoolVar(&o.submit, "submit", false, "submit approved offers for insertion")
	flag.StringVar(&o.destinations, "destinations", "", "customer/campaign/ad_group triples, comma separated; empty uses every ad group serving the video")
	flag.Float64Var(&o.cpc, "cpc", 0, "max CPC bid in account currency; 0 uses the server default")
	flag.DurationVar(&o.pollEvery, "poll-every", 5*time.Second, "insertion status polling interval")
	flag.DurationVar(&o.pollFor, "poll-for", 2*time.Minute, "how long to wait for insertion outcomes")
	flag.Parse()
	return o
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	o := parseFlags()
	if o.video == "" {
		log.Fatal("-video is required")
	}

	ctx := context.Background()
	client := apiclient.New(o.apiURL, nil)
	if err := client.Login(ctx, o.email, o.password); err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}

	a, err := client.GetVideoAnalysis(ctx, o.video)
	if err != nil {
		log.Fatalf("❌ Failed to load video %s: %v", o.video, err)
	}

	if o.offers == "" {
		printCandidates(a)
		return
	}

	sel := selection.New(client, o.email)
	defer sel.Close()
	sel.Subscribe(func(c selection.Change) {
		for _, it := range c.Items {
			fmt.Printf("  %-24s -> %s\n", it.Candidate.OfferID, c.Status)
		}
	})

	heroes := selectOffers(sel, a, splitOffers(o.offers))
	if len(heroes) == 0 {
		log.Fatalf("❌ None of %s is a candidate of video %s", o.offers, o.video)
	}

	if !sel.UpdateStatus(ctx, models.Status(strings.ToUpper(o.status)), nil) {
		os.Exit(1)
	}

	if !o.submit {
		return
	}
	if !strings.EqualFold(o.status, string(models.StatusApproved)) {
		log.Fatal("❌ Only approved offers can be submitted")
	}

	dests, err := parseDestinations(o.destinations)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if len(dests) == 0 {
		groups, err := client.AdGroupsForVideo(ctx, o.video)
		if err != nil {
			log.Fatalf("❌ Failed to look up ad groups: %v", err)
		}
		for _, g := range groups {
			dests = append(dests, models.Destination{
				CustomerID: g.CustomerID, CampaignID: g.CampaignID, AdGroupID: g.AdGroupID, AdGroupName: g.AdGroupName,
			})
		}
	}

	pipeline := submission.NewPipeline(client, client)
	before, _ := pipeline.InsertionStatusesForVideo(ctx, o.video)

	req := submission.Request{
		VideoUUID:      o.video,
		OfferIDs:       heroes,
		Destinations:   dests,
		SubmittingUser: o.email,
	}
	if o.cpc > 0 {
		req.CPC = &o.cpc
	}
	if !pipeline.Submit(ctx, req) {
		os.Exit(1)
	}
	fmt.Printf("📤 Submitted %d offers to %d ad groups\n", len(heroes), len(dests))

	poll(ctx, pipeline, o, len(before))
}

// poll waits until a new insertion outcome shows up for the video
func poll(ctx context.Context, pipeline *submission.Pipeline, o options, seen int) {
	deadline := time.Now().Add(o.pollFor)
	for time.Now().Before(deadline) {
		time.Sleep(o.pollEvery)

		statuses, ok := pipeline.InsertionStatusesForVideo(ctx, o.video)
		if !ok || len(statuses) <= seen {
			continue
		}
		for _, st := range statuses[:len(statuses)-seen] {
			fmt.Printf("📊 Request %s: %s\n", st.RequestUUID, st.Status)
			for _, e := range st.AdsEntities {
				fmt.Printf("   ad group %d: %d products", e.AdGroupID, len(e.Products))
				if e.ErrorMessage != nil {
					fmt.Printf(" (%s)", *e.ErrorMessage)
				}
				fmt.Println()
			}
		}
		return
	}
	fmt.Println("⏳ No insertion outcome yet, check again later")
}

func printCandidates(a *analysis.VideoAnalysis) {
	fmt.Printf("🎬 %s %s\n", a.Video.UUID, a.Video.Metadata.Data().Title)
	for _, p := range a.IdentifiedProducts {
		fmt.Printf("\n%s  %s\n", p.UUID, p.Title)
		for _, c := range p.Candidates {
			status := models.StatusUnreviewed
			if c.CandidateStatus != nil {
				status = c.CandidateStatus.Status
			}
			fmt.Printf("  %-24s %-12s %.3f  %s", c.OfferID, status, c.Distance, c.Title)
			if len(c.Variants) > 1 {
				fmt.Printf("  (+%d variants)", len(c.Variants)-1)
			}
			fmt.Println()
		}
	}
}
