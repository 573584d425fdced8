package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/ai"
	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

// ChatService forwards a single user message to the completion provider
// under a bounded timeout.
type ChatService struct {
	chatter ai.IChatter
	timeout time.Duration
}

func NewChatService(chatter ai.IChatter, timeout time.Duration) *ChatService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatService{chatter: chatter, timeout: timeout}
}

func (s *ChatService) Chat(ctx context.Context, message string) (*model.ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", errs.ErrInvalidRequest)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.chatter.Chat(callCtx, message)
	if err != nil {
		return nil, err
	}
	if reply.Usage.TotalTokens == 0 {
		reply.Usage.TotalTokens = reply.Usage.PromptTokens + reply.Usage.CompletionTokens
	}
	logutil.GetLogger(ctx).Debug("completion generated",
		zap.Uint32("total_tokens", reply.Usage.TotalTokens),
	)
	return reply, nil
}
