package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhaojunwei/campus-companion/backend/internal/config"
)

// ApologyReply is returned whenever the agent engine fails. The pipeline
// never surfaces engine errors to the caller; degrading to this fixed reply
// is the designed behavior.
const ApologyReply = "I'm sorry, I encountered an error."

// Input carries everything the counselor agent receives for one turn.
// StudentIssue duplicates UserMessage; the agent's task definitions consume
// both fields, so the duplication is kept.
type Input struct {
	Context      string
	UserMessage  string
	StudentIssue string
	Emotion      string
}

const systemPrompt = "你是一位校园心理咨询师，负责倾听学生的倾诉并给出温和、具体、可执行的建议。" +
	"你会拿到此前的对话记录和从学生摄像头画面推断出的情绪标签（可能为 unknown）。" +
	"请结合情绪标签调整语气，用与学生相同的语言回复，保持简洁自然，不要提及你看到了这些元数据。"

const userPrompt = "对话记录：\n{context}\n\n" +
	"学生消息：{user_message}\n" +
	"学生困扰：{student_issue}\n" +
	"检测到的情绪：{emotion}\n\n" +
	"请以咨询师身份继续这段对话，直接输出回复正文。"

// Service wraps a single synchronous call into the conversational agent
// engine behind a compiled eino chain.
type Service struct {
	cfg   config.AIConfig
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the counselor chain once at startup.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile counselor chain: %w", err)
	}

	return &Service{cfg: cfg, chain: runnable}, nil
}

// StreamingEnabled 指示是否开启 SSE 流式输出。
func (s *Service) StreamingEnabled() bool {
	return s != nil && s.chain != nil && s.cfg.StreamResponse
}

// Reply invokes the agent and normalizes its output to plain text. Engine
// failures are logged and converted to ApologyReply, never propagated.
func (s *Service) Reply(ctx context.Context, in Input) string {
	if s == nil || s.chain == nil {
		log.Printf("[agent] engine unavailable, using apology reply")
		return ApologyReply
	}

	msg, err := s.chain.Invoke(ctx, chainInput(in))
	if err != nil {
		log.Printf("[agent] invoke failed: %v", err)
		return ApologyReply
	}

	return unwrap(msg)
}

// Stream returns the raw chunk stream for the SSE endpoint. Unlike Reply,
// stream setup errors are surfaced so the handler can fall back.
func (s *Service) Stream(ctx context.Context, in Input) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chain.Stream(ctx, chainInput(in))
	if err != nil {
		return nil, fmt.Errorf("failed to stream counselor chain output: %w", err)
	}
	return stream, nil
}

func chainInput(in Input) map[string]any {
	return map[string]any{
		"context":       in.Context,
		"user_message":  in.UserMessage,
		"student_issue": in.StudentIssue,
		"emotion":       in.Emotion,
	}
}

// unwrap normalizes the engine's result envelope to a plain string.
func unwrap(msg *schema.Message) string {
	if msg == nil {
		return ApologyReply
	}
	return msg.Content
}
