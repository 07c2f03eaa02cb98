package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/garnizeh/prepwise/internal/models"
)

// Payload is the subset of a post-call delivery the server reads.
type Payload struct {
	Type string `json:"type"`
	Data struct {
		AgentID        string   `json:"agent_id"`
		ConversationID string   `json:"conversation_id"`
		Analysis       Analysis `json:"analysis"`
		ClientData     struct {
			DynamicVariables map[string]any `json:"dynamic_variables"`
		} `json:"conversation_initiation_client_data"`
	} `json:"data"`
}

// Analysis holds the interview parameters the question agent collected.
type Analysis struct {
	Level     string    `json:"level"`
	Role      string    `json:"role"`
	TechStack TechStack `json:"tech_stack"`
	// Legacy spelling used by older agents.
	TechStackAlt TechStack `json:"techstack"`
	Amount       Count     `json:"amount"`
	Type         string    `json:"type"`
	UserID       string    `json:"user_id"`
}

// ParsePayload decodes a delivery body.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}

// UserEmail returns the email of the user the conversation was started for.
func (p *Payload) UserEmail() string {
	if v, ok := p.Data.ClientData.DynamicVariables["user_id"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(p.Data.Analysis.UserID)
}

// Empty reports whether the delivery carries no interview request at all,
// as for conversations held with the interview agent.
func (a Analysis) Empty() bool {
	return a.Role == "" && a.Level == "" && a.Amount == 0 && len(a.Stack()) == 0
}

// Stack returns the tech stack under either key.
func (a Analysis) Stack() []string {
	if len(a.TechStack) > 0 {
		return a.TechStack
	}
	return a.TechStackAlt
}

// TechStack accepts a comma separated string or a list of strings.
type TechStack []string

func (t *TechStack) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = nil
		return nil
	}

	var list []string
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("tech stack: %w", err)
		}
	} else {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("tech stack: %w", err)
		}
		list = strings.Split(s, ",")
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*t = out
	return nil
}

// Count accepts an integral JSON number or a numeric string.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}

	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("count: %w", err)
		}
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		*c = Count(n)
		return nil
	}
	// agents may send integral floats such as 5.0
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("count: %q is not an integer", s)
	}
	*c = Count(int(f))
	return nil
}

// Transcript accepts the turn list itself or a JSON string holding it.
type Transcript []models.Turn

func (t *Transcript) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("transcript: %w", err)
		}
		b = []byte(s)
	}

	var turns []models.Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	*t = turns
	return nil
}
