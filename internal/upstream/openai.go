package upstream

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// OpenAIOptions configure the OpenAI-backed client.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	// Model is the chat model used by the streaming path. The poll-based run
	// path takes its model from the assistant configured upstream.
	Model string
}

// OpenAIClient implements Client on top of the official OpenAI SDK: the
// Assistants (threads/runs) surface for the poll-based lifecycle and Chat
// Completions streaming for the token relay.
type OpenAIClient struct {
	client openai.Client
	opts   OpenAIOptions
}

// NewOpenAIClient builds an OpenAI-backed upstream client.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	reqOpts := []option.RequestOption{}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}
	return &OpenAIClient{client: openai.NewClient(reqOpts...), opts: opts}
}

// CreateThread creates a new empty thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

// AddUserMessage appends a user message to the thread.
func (c *OpenAIClient) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := c.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// StartRun starts a generation run for the thread.
func (c *OpenAIClient) StartRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	run, err := c.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return Run{ID: run.ID, ThreadID: threadID, Status: RunStatus(run.Status)}, nil
}

// GetRun fetches the current state of a run.
func (c *OpenAIClient) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := c.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return Run{}, fmt.Errorf("poll run: %w", err)
	}
	return Run{ID: run.ID, ThreadID: threadID, Status: RunStatus(run.Status)}, nil
}

// ListMessages returns the newest messages of the thread, newest first, with
// text content parts flattened into Segments.
func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	page, err := c.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
		Limit: openai.Int(int64(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]Message, 0, len(page.Data))
	for _, m := range page.Data {
		msg := Message{ID: m.ID, Role: string(m.Role)}
		for _, part := range m.Content {
			if part.Type == "text" {
				msg.Segments = append(msg.Segments, part.Text.Value)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// StreamReply opens a chat-completions token stream over the given history.
func (c *OpenAIClient) StreamReply(ctx context.Context, turns []Turn) (TokenStream, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(t.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    c.opts.Model,
		Messages: messages,
	})
	return &chatTokenStream{stream: stream}, nil
}

// chatTokenStream adapts the SDK's chunk stream to TokenStream, skipping
// chunks that carry no text delta.
type chatTokenStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	token  string
}

func (s *chatTokenStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				s.token = choice.Delta.Content
				return true
			}
		}
	}
	return false
}

func (s *chatTokenStream) Token() string { return s.token }

func (s *chatTokenStream) Err() error { return s.stream.Err() }

func (s *chatTokenStream) Close() error { return s.stream.Close() }
