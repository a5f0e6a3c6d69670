package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/novabanka/branch-appointments/internal/booking"
	"github.com/novabanka/branch-appointments/internal/chatbot"
	"github.com/novabanka/branch-appointments/internal/model"
	"github.com/novabanka/branch-appointments/internal/repository"
)

const maxChatMessageLen = 2000

// ChatHandler serves the conversational channel.  The bot answers from
// trusted context (the branch directory and, when the question is
// about booking, today's availability); it never books anything itself
// and instead links users to the reservation flow.  Bot may be nil
// when no API key is configured, in which case a static fallback is
// served and the conversation is still persisted.
type ChatHandler struct {
	Bot      *chatbot.Client
	Chats    *repository.ChatRepo
	Branches *repository.BranchRepo
	Engine   *booking.Engine
}

func NewChatHandler(bot *chatbot.Client, chats *repository.ChatRepo, branches *repository.BranchRepo, engine *booking.Engine) *ChatHandler {
	return &ChatHandler{Bot: bot, Chats: chats, Branches: branches, Engine: engine}
}

type chatReq struct {
	Message string `json:"message"`
}

// Chat handles POST /v1/chat.
func (h *ChatHandler) Chat(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message is required"})
	}
	if len(message) > maxChatMessageLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message too long"})
	}

	ctx := c.Request().Context()

	resp := chatbot.Response{
		Intent: chatbot.IntentUnknown,
		Reply:  "The assistant is currently unavailable. Please use the branch directory and booking endpoints directly.",
	}
	if h.Bot != nil {
		history := h.recentTurns(c, uid)
		contextText := h.buildContext(c, message)
		if r, err := h.Bot.Chat(ctx, message, contextText, history); err == nil {
			resp = r
		} else {
			c.Logger().Errorf("chatbot: completion failed: %v", err)
			resp.Reply = "I could not process that right now. Please try again in a moment."
		}
	}

	// Persist both turns; history failures must not lose the reply.
	if err := h.Chats.Append(ctx, model.ChatMessage{UserID: uid, Role: model.ChatRoleUser, Content: message}); err != nil {
		c.Logger().Errorf("chat: persist user turn failed: %v", err)
	}
	if err := h.Chats.Append(ctx, model.ChatMessage{UserID: uid, Role: model.ChatRoleAssistant, Content: resp.Reply, Intent: resp.Intent}); err != nil {
		c.Logger().Errorf("chat: persist assistant turn failed: %v", err)
	}

	return c.JSON(http.StatusOK, resp)
}

// History handles GET /v1/chat/history?limit=N.
func (h *ChatHandler) History(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 200 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be 1-200"})
		}
		limit = n
	}
	items, err := h.Chats.History(c.Request().Context(), uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load history failed"})
	}
	if items == nil {
		items = []model.ChatMessage{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// recentTurns loads the last stored turns as model input.
func (h *ChatHandler) recentTurns(c echo.Context, uid uint64) []chatbot.Turn {
	msgs, err := h.Chats.History(c.Request().Context(), uid, 20)
	if err != nil {
		c.Logger().Errorf("chat: load history failed: %v", err)
		return nil
	}
	turns := make([]chatbot.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, chatbot.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// buildContext assembles the trusted context the model answers from.
// The branch directory is always included; today's free slots are
// added only when the question looks booking-related, to keep prompts
// small for directory questions.
func (h *ChatHandler) buildContext(c echo.Context, message string) string {
	ctx := c.Request().Context()
	branches, err := h.Branches.ListBranches(ctx)
	if err != nil {
		c.Logger().Errorf("chat: load branches failed: %v", err)
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Branches:\n")
	for _, b := range branches {
		fmt.Fprintf(&sb, "- %s (id %d), %s\n", b.Name, b.ID, b.Address)
		for _, hrs := range b.Hours {
			fmt.Fprintf(&sb, "  %s %s-%s, %d-minute slots\n", hrs.Weekday, hrs.Open, hrs.Close, hrs.SlotMinutes)
		}
	}

	if wantsAvailability(message) {
		today := time.Now().UTC()
		fmt.Fprintf(&sb, "Free slots today (%s, UTC):\n", today.Format("2006-01-02"))
		for _, b := range branches {
			slots, err := h.Engine.Availability(ctx, b.ID, today)
			if err != nil {
				continue
			}
			if len(slots) == 0 {
				fmt.Fprintf(&sb, "- %s: none\n", b.Name)
				continue
			}
			starts := make([]string, 0, len(slots))
			for i, s := range slots {
				if i == 6 {
					starts = append(starts, "...")
					break
				}
				starts = append(starts, s.Start.Format("15:04"))
			}
			fmt.Fprintf(&sb, "- %s: %s\n", b.Name, strings.Join(starts, ", "))
		}
	}
	return sb.String()
}

// wantsAvailability guesses whether the message asks about bookable
// slots.  A false positive only costs a slightly larger prompt.
func wantsAvailability(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range []string{"slot", "availab", "book", "appointment", "reserve", "free time"} {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}
