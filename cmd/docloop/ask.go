package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/randalmurphal/docloop/pkg/docloop/llm"
)

const askSystemPrompt = "You are a helpful writing assistant. Answer the question directly and concisely."

// AskCmd sends one question to the configured model.
type AskCmd struct {
	Question []string `arg:"" help:"Question to ask."`
	Provider string   `help:"Provider (openai, claude). Overrides llm.provider."`
	Model    string   `help:"Model name. Overrides llm.model."`
}

func (c *AskCmd) Run(cli *CLI) error {
	e, err := cli.load(overrides{provider: c.Provider, model: c.Model})
	if err != nil {
		return err
	}
	client, err := e.newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	answer, err := ask(ctx, client, e.settings.Temperature, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func ask(ctx context.Context, client llm.Client, temperature float64, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("no question given")
	}
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: askSystemPrompt,
		Messages:     []llm.Message{llm.UserMessage(question)},
		Temperature:  llm.Temperature(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
