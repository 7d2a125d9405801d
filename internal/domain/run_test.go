package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAgentResultWireShape(t *testing.T) {
	ok := SuccessResult(json.RawMessage(`{"stack":["go"]}`))
	data, err := json.Marshal(ok)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"stack":["go"]}` {
		t.Fatalf("success should marshal as its payload, got %s", data)
	}

	failed := ErrorResult("invalid JSON from architect", "oops")
	data, err = json.Marshal(failed)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m["_error"] != "invalid JSON from architect" || m["raw"] != "oops" {
		t.Fatalf("unexpected error shape: %s", data)
	}
}

func TestAgentResultUnmarshalRoundTrip(t *testing.T) {
	var res AgentResult
	if err := json.Unmarshal([]byte(`{"_error":"boom","raw":"text"}`), &res); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if res.OK() || res.Err != "boom" || res.Raw != "text" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if err := json.Unmarshal([]byte(`{"budget": 12}`), &res); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("plain object should be a success: %+v", res)
	}
}

func TestRunResultErrors(t *testing.T) {
	results := RunResult{
		"architect": SuccessResult(json.RawMessage(`{}`)),
		"pm":        ErrorResult("timeout", ""),
		"cost":      ErrorResult("empty response from cost", ""),
	}
	got := results.Errors()
	want := []string{"cost", "pm"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Errors() = %v, want %v", got, want)
	}
	if len(RunResult{}.Errors()) != 0 {
		t.Fatalf("empty run should have no errors")
	}
}
