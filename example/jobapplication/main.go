package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/convoform/agent"
	"github.com/tbxark/convoform/config"
	"github.com/tbxark/convoform/prompt"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	err = startApp(context.Background(), cfg)
	if err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(ctx context.Context, cfg *config.Config) error {
	slog.SetLogLoggerLevel(cfg.SlogLevel())
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return err
	}
	flow := agent.NewChatModelFormFlow(jobApplicationForm(), cm, agent.NewMemoryStateStore(),
		agent.WithPromptBuilder(prompt.NewBuilder(prompt.WithLang(cfg.Lang))),
		agent.WithValidationPolicy(cfg.SkipSet()),
		agent.WithEndMessage(cfg.EndMessage),
		agent.WithFormManager(&JobApplicationManager{}),
	)
	formAgent := agent.NewAgent(
		"JobApplicationAssistant",
		"An agent that collects a job application through conversation",
		flow,
	)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent:           formAgent,
		EnableStreaming: true,
	})

	chatCtx := agent.WithStateKey(ctx, "job-application")
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Say hi to start your application.")
	for {
		fmt.Print("You: ")
		input, rErr := reader.ReadString('\n')
		if rErr != nil {
			fmt.Println("Input closed. Bye.")
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		iter := runner.Run(chatCtx, []adk.Message{schema.UserMessage(input)})
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			fmt.Print("\nAssistant: ")
			if err := printOutput(event.Output.MessageOutput); err != nil {
				return err
			}
			fmt.Println()
		}

		state, ok, sErr := flow.Snapshot(chatCtx)
		if sErr != nil {
			return sErr
		}
		if ok && state.Phase == agent.PhaseFinished {
			fmt.Printf("======\nSaved as %q\n", state.Name)
			return nil
		}
	}
}

func printOutput(out *adk.MessageVariant) error {
	if !out.IsStreaming {
		fmt.Print(out.Message.Content)
		return nil
	}
	defer out.MessageStream.Close()
	for {
		chunk, err := out.MessageStream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(chunk.Content)
	}
}
