package utils

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func TestSnakeToCamel(t *testing.T) {
	cases := map[string]string{
		"video_analysis_uuid": "videoAnalysisUuid",
		"ad_group_id":         "adGroupId",
		"status":              "status",
		"is_added_by_user":    "isAddedByUser",
		"v2_offer":            "v2Offer",
		"a_1":                 "a_1",
		"_private":            "Private",
		"":                    "",
	}
	for in, want := range cases {
		if got := SnakeToCamel(in); got != want {
			t.Errorf("SnakeToCamel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"videoAnalysisUuid": "video_analysis_uuid",
		"adGroupId":         "ad_group_id",
		"status":            "status",
		"a_1":               "a_1",
	}
	for in, want := range cases {
		if got := CamelToSnake(in); got != want {
			t.Errorf("CamelToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCasing_RoundTrip(t *testing.T) {
	keys := []string{
		"video_analysis_uuid", "identified_product_uuid", "candidate_offer_id",
		"candidate_status", "modified_timestamp", "submission_metadata",
		"offer_ids", "destinations", "ad_group_id", "campaign_id", "customer_id",
		"submitting_user", "cpc", "request_uuid", "ads_entities", "error_message",
		"identified_products_count", "matched_products", "video_timestamp",
		"a_1", "x_2_y", "_lead", "double__underscore", "trailing_",
	}
	for _, k := range keys {
		if got := CamelToSnake(SnakeToCamel(k)); got != k {
			t.Errorf("snake round trip of %q gave %q", k, got)
		}
	}

	camel := []string{"videoAnalysisUuid", "adsEntities", "cpc", "isAddedByUser"}
	for _, k := range camel {
		if got := SnakeToCamel(CamelToSnake(k)); got != k {
			t.Errorf("camel round trip of %q gave %q", k, got)
		}
	}
}

func TestCamelizeKeys_Nested(t *testing.T) {
	in := map[string]interface{}{
		"video_analysis_uuid": "v",
		"candidate_status": map[string]interface{}{
			"status": "APPROVED",
			"submission_metadata": map[string]interface{}{
				"destinations": []interface{}{
					map[string]interface{}{"ad_group_id": "1"},
				},
			},
		},
	}

	out := CamelizeKeys(in).(map[string]interface{})
	status := out["candidateStatus"].(map[string]interface{})
	meta := status["submissionMetadata"].(map[string]interface{})
	dest := meta["destinations"].([]interface{})[0].(map[string]interface{})
	if dest["adGroupId"] != "1" {
		t.Errorf("Expected nested keys to be camelized, got %v", out)
	}

	if back := SnakifyKeys(out); !reflect.DeepEqual(back, in) {
		t.Errorf("Expected SnakifyKeys to restore the input, got %v", back)
	}
}

func TestMarshalCamel(t *testing.T) {
	type body struct {
		OfferID  string `json:"offer_id"`
		Distance int64  `json:"distance"`
	}

	raw, err := MarshalCamel(body{OfferID: "A", Distance: 9007199254740993})
	if err != nil {
		t.Fatalf("MarshalCamel failed: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var got map[string]interface{}
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got["offerId"] != "A" {
		t.Errorf("Expected offerId, got %s", raw)
	}
	if got["distance"] != json.Number("9007199254740993") {
		t.Errorf("Expected large numbers to survive, got %s", raw)
	}
}

func TestUnmarshalCamel(t *testing.T) {
	type body struct {
		VideoAnalysisUUID string `json:"video_analysis_uuid"`
		MsgID             string `json:"msg_id"`
		Count             int64  `json:"count"`
	}

	var got body
	if err := UnmarshalCamel([]byte(`{"videoAnalysisUuid":"v1","msgId":"m1","count":9007199254740993}`), &got); err != nil {
		t.Fatalf("UnmarshalCamel failed: %v", err)
	}
	want := body{VideoAnalysisUUID: "v1", MsgID: "m1", Count: 9007199254740993}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if err := UnmarshalCamel([]byte(`{"video_analysis_uuid":"v2"}`), &got); err != nil || got.VideoAnalysisUUID != "v2" {
		t.Errorf("Expected snake_case keys to pass through, got %+v, %v", got, err)
	}

	if err := UnmarshalCamel([]byte(`not json`), &got); err == nil {
		t.Error("Expected an error for invalid JSON")
	}
}
