package process

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const shortPrompt = `What follows is the transcript of a YouTube video. Summarize it.
Based on this summary the user will decide whether to watch the video or not.
The summary should at least have a title, a list of tags, bullet points and a
brief conclusion with a "watch this video if" part explaining who should watch
the video and why. Prefer short sentences over long paragraphs, space out the
text and use bullet points where possible.`

const extendedPrompt = `What follows is the transcript of a YouTube video. Explain it in detail.
The user does not want to read the whole transcript, but wants to know what
the video is about and get the most out of it with a ten minute read at most.`

type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(client *openai.Client, model string) *OpenAISummarizer {
	return &OpenAISummarizer{
		client: client,
		model:  model,
	}
}

func (sum *OpenAISummarizer) Summarize(ctx context.Context, text string, mode SummaryMode) (string, error) {
	if strings.TrimSpace(text) == "" {
		// no transcript, no summary
		return "", nil
	}

	prompt := shortPrompt
	if mode == SummaryExtended {
		prompt = extendedPrompt
	}

	resp, err := sum.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: sum.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: prompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				},
			},
		})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrQuotaExhausted, apiErr.Message)
		}
		return "", fmt.Errorf("failed to fetch summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary response contained no choices")
	}

	return resp.Choices[len(resp.Choices)-1].Message.Content, nil
}
