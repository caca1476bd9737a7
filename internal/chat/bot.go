package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/herkey/asha/internal/models"
	"github.com/herkey/asha/internal/recommender"
)

// defaultMaxUsers caps how many user histories the bot keeps in memory. The
// least recently active user is evicted when the cap is exceeded.
const defaultMaxUsers = 1000

// intentKeywords mark messages where the user is looking for something to
// attend or learn, which is when session recommendations get attached.
var intentKeywords = []string{
	"session", "workshop", "event", "webinar", "recommend",
	"learn", "course", "training", "upskill",
}

// Bot runs chat turns: it generates a reply, attaches session
// recommendations when the user asks for something to learn, and keeps
// per-user history.
type Bot struct {
	logger   *zap.Logger
	primary  Generator
	fallback Generator
	rec      *recommender.Recommender

	historyLimit int
	maxUsers     int

	mu        sync.Mutex
	histories map[string]*userHistory
}

// userHistory is one user's recent exchanges plus their last activity time,
// used to pick an eviction victim when too many users are tracked.
type userHistory struct {
	messages []Message
	lastSeen time.Time
}

// NewBot creates a bot. primary may be nil, in which case every turn uses the
// fallback generator.
func NewBot(logger *zap.Logger, primary Generator, rec *recommender.Recommender, historyLimit int) *Bot {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Bot{
		logger:       logger,
		primary:      primary,
		fallback:     NewSimulated(),
		rec:          rec,
		historyLimit: historyLimit,
		maxUsers:     defaultMaxUsers,
		histories:    make(map[string]*userHistory),
	}
}

// Respond handles one chat turn.
func (b *Bot) Respond(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return &models.ChatResponse{
			Reply:  "Tell me what you are working on and I will do my best to help.",
			Source: b.fallback.Name(),
		}, nil
	}

	history := b.history(req.UserID)

	reply, source := b.generate(ctx, history, message)
	resp := &models.ChatResponse{Reply: reply, Source: source}

	if b.rec != nil && wantsSessions(message) {
		rr, err := b.rec.Recommend(ctx, &models.RecommendQuery{Query: message, UserID: req.UserID})
		if err != nil {
			b.logger.Warn("could not attach recommendations", zap.Error(err))
		} else if rr.Total > 0 {
			resp.Recommendations = rr.Results
			resp.Reply += "\n\n" + recommender.Format(rr.Results)
		}
	}

	b.remember(req.UserID, message, reply)
	return resp, nil
}

func (b *Bot) generate(ctx context.Context, history []Message, message string) (reply, source string) {
	if b.primary != nil {
		reply, err := b.primary.Generate(ctx, history, message)
		if err == nil {
			return reply, b.primary.Name()
		}
		b.logger.Warn("chat model failed, using simulated reply",
			zap.String("model", b.primary.Name()),
			zap.Error(err))
	}
	reply, _ = b.fallback.Generate(ctx, history, message)
	return reply, b.fallback.Name()
}

func (b *Bot) history(userID string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.histories[userID]
	if h == nil {
		return nil
	}
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// remember appends the turn, trims the user's history to the configured limit
// of exchanges, and evicts the least recently active user when the tracked
// user count exceeds maxUsers.
func (b *Bot) remember(userID, message, reply string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.histories[userID]
	if h == nil {
		h = &userHistory{}
		b.histories[userID] = h
	}
	h.messages = append(h.messages,
		Message{Role: "user", Content: message},
		Message{Role: "assistant", Content: reply},
	)
	if max := b.historyLimit * 2; len(h.messages) > max {
		h.messages = h.messages[len(h.messages)-max:]
	}
	h.lastSeen = time.Now()

	if len(b.histories) > b.maxUsers {
		var victim string
		var oldest time.Time
		for id, uh := range b.histories {
			if id == userID {
				continue
			}
			if victim == "" || uh.lastSeen.Before(oldest) {
				victim = id
				oldest = uh.lastSeen
			}
		}
		if victim != "" {
			delete(b.histories, victim)
		}
	}
}

func wantsSessions(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
