package webhook_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/garnizeh/prepwise/internal/webhook"
)

func TestParsePayload_Fields(t *testing.T) {
	body := []byte(`{
		"type": "post_call_transcription",
		"data": {
			"conversation_id": "conv_1",
			"analysis": {"level": "junior", "role": "backend", "tech_stack": "node, sql", "amount": 5},
			"conversation_initiation_client_data": {"dynamic_variables": {"user_id": "ann@example.com", "username": "ann"}}
		}
	}`)

	p, err := webhook.ParsePayload(body)
	if err != nil {
		t.Fatalf("ParsePayload error: %v", err)
	}
	a := p.Data.Analysis
	if a.Level != "junior" || a.Role != "backend" || int(a.Amount) != 5 {
		t.Fatalf("unexpected analysis: %#v", a)
	}
	if strings.Join(a.Stack(), "|") != "node|sql" {
		t.Fatalf("unexpected stack: %#v", a.Stack())
	}
	if p.UserEmail() != "ann@example.com" || p.Data.ConversationID != "conv_1" {
		t.Fatalf("unexpected ids: %q %q", p.UserEmail(), p.Data.ConversationID)
	}
	if a.Empty() {
		t.Fatalf("analysis should not be empty")
	}
}

func TestPayload_UserEmailFallback(t *testing.T) {
	p, err := webhook.ParsePayload([]byte(`{"data":{"analysis":{"user_id":" bob@example.com "}}}`))
	if err != nil {
		t.Fatalf("ParsePayload error: %v", err)
	}
	if p.UserEmail() != "bob@example.com" {
		t.Fatalf("unexpected email %q", p.UserEmail())
	}

	p, _ = webhook.ParsePayload([]byte(`{}`))
	if p.UserEmail() != "" || !p.Data.Analysis.Empty() {
		t.Fatalf("expected empty payload")
	}
}

func TestTechStack_Unmarshal(t *testing.T) {
	cases := map[string]string{
		`"react,  go ,,"`:   "react|go",
		`["react", " go "]`: "react|go",
		`"Go"`:              "Go",
		`null`:              "",
		`""`:                "",
	}
	for in, want := range cases {
		var ts webhook.TechStack
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if got := strings.Join(ts, "|"); got != want {
			t.Fatalf("%s: got %q want %q", in, got, want)
		}
	}

	var ts webhook.TechStack
	if err := json.Unmarshal([]byte(`42`), &ts); err == nil {
		t.Fatalf("expected error for numeric tech stack")
	}
}

func TestTechStack_LegacyKey(t *testing.T) {
	p, err := webhook.ParsePayload([]byte(`{"data":{"analysis":{"techstack":["vue"]}}}`))
	if err != nil {
		t.Fatalf("ParsePayload error: %v", err)
	}
	if len(p.Data.Analysis.Stack()) != 1 || p.Data.Analysis.Stack()[0] != "vue" {
		t.Fatalf("unexpected stack %#v", p.Data.Analysis.Stack())
	}
}

func TestCount_Unmarshal(t *testing.T) {
	for in, want := range map[string]int{`5`: 5, `"7"`: 7, `" 3 "`: 3, `null`: 0, `5.0`: 5, `"4.0"`: 4, `1e1`: 10} {
		var c webhook.Count
		if err := json.Unmarshal([]byte(in), &c); err != nil {
			t.Fatalf("%s: unexpected error %v", in, err)
		}
		if int(c) != want {
			t.Fatalf("%s: got %d want %d", in, c, want)
		}
	}
	for _, bad := range []string{`"five"`, `2.5`, `true`, `"NaN"`, `"Inf"`, `1e300`} {
		var c webhook.Count
		if err := json.Unmarshal([]byte(bad), &c); err == nil {
			t.Fatalf("%s: expected error", bad)
		}
	}
}

func TestTranscript_Unmarshal(t *testing.T) {
	turns := `[{"role":"agent","content":"Hi"},{"role":"user","content":"Hello"}]`
	encoded, _ := json.Marshal(turns)

	for name, in := range map[string]string{"array": turns, "string": string(encoded)} {
		var tr webhook.Transcript
		if err := json.Unmarshal([]byte(in), &tr); err != nil {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
		if len(tr) != 2 || tr[1].Content != "Hello" {
			t.Fatalf("%s: unexpected transcript %#v", name, tr)
		}
	}

	var tr webhook.Transcript
	if err := json.Unmarshal([]byte(`"not json"`), &tr); err == nil {
		t.Fatalf("expected error for undecodable string transcript")
	}
	if err := json.Unmarshal([]byte(`{"role":"x"}`), &tr); err == nil {
		t.Fatalf("expected error for object transcript")
	}
}
