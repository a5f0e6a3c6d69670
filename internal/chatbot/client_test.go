package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseDirectJSON(t *testing.T) {
	r := parseResponse(`{"intent":"branches_list","reply":"We have two branches.","link":""}`)
	assert.Equal(t, IntentBranchesList, r.Intent)
	assert.Equal(t, "We have two branches.", r.Reply)
}

func TestParseResponseFencedJSON(t *testing.T) {
	content := "```json\n{\"intent\":\"appointments_slots\",\"reply\":\"Free at 10:00.\",\"link\":\"/appointments\"}\n```"
	r := parseResponse(content)
	assert.Equal(t, IntentApptSlots, r.Intent)
	assert.Equal(t, "/appointments", r.Link)
}

func TestParseResponseJSONWithProse(t *testing.T) {
	content := `Sure, here is the answer: {"intent":"faq","reply":"Bring your ID card.","link":""} Hope that helps!`
	r := parseResponse(content)
	assert.Equal(t, IntentFAQ, r.Intent)
	assert.Equal(t, "Bring your ID card.", r.Reply)
}

func TestParseResponsePlainTextFallsBack(t *testing.T) {
	r := parseResponse("I am just chatting, no JSON here.")
	assert.Equal(t, IntentUnknown, r.Intent)
	assert.Equal(t, "I am just chatting, no JSON here.", r.Reply)
}

func TestParseResponseCapsRawReply(t *testing.T) {
	r := parseResponse(strings.Repeat("x", 1000))
	assert.Equal(t, IntentUnknown, r.Intent)
	assert.Len(t, r.Reply, 600)
}

func TestNormalizeRejectsUnknownIntent(t *testing.T) {
	r := normalize(Response{Intent: "transfer_money", Reply: "done"})
	assert.Equal(t, IntentUnknown, r.Intent)

	r = normalize(Response{Intent: IntentGreeting, Reply: "  "})
	assert.Equal(t, fallbackReply, r.Reply)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("", "", "")
	assert.Error(t, err)
}

func completionBody(content string) string {
	payload := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestChatSendsContextAndParsesAnswer(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, completionBody(`{"intent":"branches_hours","reply":"Open 09:00-17:00.","link":""}`))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "test-model")
	require.NoError(t, err)

	r, err := c.Chat(context.Background(), "When are you open?", "Branches:\n- Central 09:00-17:00", nil)
	require.NoError(t, err)
	assert.Equal(t, IntentBranchesHours, r.Intent)
	assert.Equal(t, "Open 09:00-17:00.", r.Reply)

	require.NotEmpty(t, got.Messages)
	assert.Equal(t, "system", got.Messages[0].Role)
	last := got.Messages[len(got.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "CONTEXT (trusted source of truth):")
	assert.Contains(t, last.Content, "USER QUESTION:")
	assert.Equal(t, "test-model", got.Model)
}

func TestChatTrimsHistory(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, completionBody(`{"intent":"greeting","reply":"Hello!","link":""}`))
	}))
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "")
	require.NoError(t, err)

	history := make([]Turn, 0, 30)
	for i := 0; i < 30; i++ {
		history = append(history, Turn{Role: "user", Content: fmt.Sprintf("turn %d", i)})
	}
	_, err = c.Chat(context.Background(), "hi", "", history)
	require.NoError(t, err)

	// system + last 10 history turns + final user message
	assert.Len(t, got.Messages, 1+maxHistoryTurns+1)
	assert.Equal(t, "turn 20", got.Messages[1].Content)
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "hi", "", nil)
	assert.Error(t, err)
}

func TestChatEmptyChoicesFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c, err := NewClient("test-key", srv.URL, "")
	require.NoError(t, err)

	r, err := c.Chat(context.Background(), "hi", "", nil)
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, r.Intent)
	assert.Equal(t, fallbackReply, r.Reply)
}
