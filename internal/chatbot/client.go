// Package chatbot implements the conversational channel: a thin client
// for an OpenAI-compatible chat-completions API (Groq) that forces the
// model to answer with a small JSON envelope {intent, reply, link}.
// The package performs no booking itself; handlers feed it trusted
// context (branch directory, availability) and route users to the
// regular reservation endpoints via the returned link.
package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Intents the model may classify a message into.  Anything else is
// normalized to IntentUnknown.
const (
	IntentGreeting      = "greeting"
	IntentBranchesHours = "branches_hours"
	IntentBranchesList  = "branches_list"
	IntentApptHelp      = "appointments_help"
	IntentApptSlots     = "appointments_slots"
	IntentFxRate        = "fx_rate"
	IntentDocsRequired  = "docs_required"
	IntentFAQ           = "faq"
	IntentUnknown       = "unknown"
)

var allowedIntents = map[string]bool{
	IntentGreeting:      true,
	IntentBranchesHours: true,
	IntentBranchesList:  true,
	IntentApptHelp:      true,
	IntentApptSlots:     true,
	IntentFxRate:        true,
	IntentDocsRequired:  true,
	IntentFAQ:           true,
	IntentUnknown:       true,
}

const systemPrompt = `You are a banking assistant. You help customers with:
- branch locations and opening hours
- reserving branch appointments (steps, required details, free slots)
- basic information about required documents
- high-level FAQ about banking services

You MUST answer with a single valid JSON object and nothing else.

Schema:
{
  "intent": "greeting|branches_hours|branches_list|appointments_help|appointments_slots|fx_rate|docs_required|faq|unknown",
  "reply": "a short, useful answer (2-4 sentences)",
  "link": "optional, or empty"
}

Rules:
- Only state branch names, hours and free slots that appear in CONTEXT; never invent rates or exact figures. If the information is missing, use intent "unknown" and refer the user to the bank.
- When the user is ready to book, point them to the reservation page via "link".
- "link" must be "" when there is nothing to link.
- The JSON must parse without errors.`

const fallbackReply = "I cannot answer that reliably. Please contact the bank directly or rephrase your question."

// maxHistoryTurns bounds how many previous turns are sent to the model.
const maxHistoryTurns = 10

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Response is the normalized bot answer.
type Response struct {
	Intent string `json:"intent"`
	Reply  string `json:"reply"`
	Link   string `json:"link"`
}

// Client calls a Groq (OpenAI-compatible) chat-completions endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a chatbot client.  An empty API key is an error;
// callers that allow running without a model should skip construction
// and serve the fallback reply themselves.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("chatbot: api key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	if model == "" {
		model = "llama3-8b-8192"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model          string       `json:"model"`
	Messages       []apiMessage `json:"messages"`
	Temperature    float64      `json:"temperature"`
	MaxTokens      int          `json:"max_tokens"`
	ResponseFormat *respFormat  `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends the user's message together with trusted context and the
// recent history, and returns the normalized {intent, reply, link}
// envelope.  Model output that fails to parse degrades to an unknown
// intent carrying whatever text came back, so the channel never
// hard-fails on a sloppy completion.
func (c *Client) Chat(ctx context.Context, message, contextText string, history []Turn) (Response, error) {
	messages := []apiMessage{{Role: "system", Content: systemPrompt}}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" || (t.Role != "user" && t.Role != "assistant") {
			continue
		}
		messages = append(messages, apiMessage{Role: t.Role, Content: content})
	}

	messages = append(messages, apiMessage{Role: "user", Content: buildUserContent(message, contextText)})

	body, err := json.Marshal(apiRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    0.2,
		MaxTokens:      320,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("chatbot: completion request failed with status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, err
	}
	if len(out.Choices) == 0 {
		return Response{Intent: IntentUnknown, Reply: fallbackReply, Link: ""}, nil
	}

	content := strings.TrimSpace(out.Choices[0].Message.Content)
	return parseResponse(content), nil
}

// buildUserContent packs the trusted context and the user question
// into one user message, clearly labelled so the model treats the
// context as the source of truth.
func buildUserContent(message, contextText string) string {
	var parts []string
	if s := strings.TrimSpace(contextText); s != "" {
		parts = append(parts, "CONTEXT (trusted source of truth):\n"+s)
	}
	parts = append(parts, "USER QUESTION:\n"+strings.TrimSpace(message))
	return strings.Join(parts, "\n\n")
}

// parseResponse turns raw model output into a Response: direct JSON
// first, then the first balanced JSON object embedded in surrounding
// text, then a fallback that preserves the raw reply under "unknown".
func parseResponse(content string) Response {
	if content == "" {
		return Response{Intent: IntentUnknown, Reply: fallbackReply, Link: ""}
	}

	var r Response
	if err := json.Unmarshal([]byte(content), &r); err == nil {
		return normalize(r)
	}
	if blob := firstJSONObject(content); blob != "" {
		if err := json.Unmarshal([]byte(blob), &r); err == nil {
			return normalize(r)
		}
	}

	reply := content
	if len(reply) > 600 {
		reply = reply[:600]
	}
	return Response{Intent: IntentUnknown, Reply: reply, Link: ""}
}

func normalize(r Response) Response {
	r.Intent = strings.TrimSpace(r.Intent)
	r.Reply = strings.TrimSpace(r.Reply)
	r.Link = strings.TrimSpace(r.Link)
	if !allowedIntents[r.Intent] {
		r.Intent = IntentUnknown
	}
	if r.Reply == "" {
		r.Reply = fallbackReply
	}
	return r
}

// firstJSONObject extracts the first balanced {...} block from s.
// Brace counting is more stable than a regex against markdown fences
// or explanatory prose around the object.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
