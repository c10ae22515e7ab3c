package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"

	"github.com/hrygo/polyglot/ai/chat"
	"github.com/hrygo/polyglot/ai/observability/logging"
	"github.com/hrygo/polyglot/ai/pedagogy"
	"github.com/hrygo/polyglot/server"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Practice in the terminal",
	Long:  "Start an interactive session. Type /history to see recent messages, /stats for memory statistics and /quit to end the session.",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "session id to resume, a new one is generated when empty")
	chatCmd.Flags().String("user", "", "user id stored with the session")
	chatCmd.Flags().String("session-level", "", "CEFR level of a new session")
	chatCmd.Flags().String("session-mode", "tutor", `"tutor" or "buddy"`)
	chatCmd.Flags().String("topic", "", "conversation topic")
	chatCmd.Flags().String("native", "", "learner's native language code")
	chatCmd.Flags().String("target", "", "practiced language code")
}

func runChat(cmd *cobra.Command, _ []string) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
	defer stop()

	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	logger := logging.New(logging.Options{Level: "warn", Format: logging.FormatText, Writer: os.Stderr})
	runtime, err := server.NewRuntime(instanceProfile, storeInstance, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := runtime.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("failed to flush session memory", "error", err)
		}
	}()

	flags := cmd.Flags()
	sessionID, _ := flags.GetString("session")
	if sessionID == "" {
		sessionID = shortuuid.New()
	}
	params := chat.StartParams{ID: sessionID}
	params.UserID, _ = flags.GetString("user")
	params.Level, _ = flags.GetString("session-level")
	params.Mode, _ = flags.GetString("session-mode")
	params.Topic, _ = flags.GetString("topic")
	params.NativeLanguage, _ = flags.GetString("native")
	params.TargetLanguage, _ = flags.GetString("target")

	session, err := runtime.Chat.StartSession(ctx, params)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s (level %s, %s mode). Type /quit to finish.\n\n", session.ID, session.Level, session.Mode)
	if err := repl(ctx, runtime, session.ID, cmd.InOrStdin(), out); err != nil {
		return err
	}

	if _, err := runtime.Chat.EndSession(context.WithoutCancel(ctx), session.ID); err != nil {
		return err
	}
	fmt.Fprintln(out, "Session saved. See you next time!")
	return nil
}

func repl(ctx context.Context, runtime *server.Runtime, sessionID string, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			messages, err := runtime.Chat.History(ctx, sessionID, 0)
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
			}
			continue
		case "/stats":
			stats := runtime.Memory.GetCacheStats()
			fmt.Fprintf(out, "cached sessions %d/%d, cached messages %d, hits %d, misses %d, persisted %d\n",
				stats.CachedSessions, stats.Capacity, stats.TotalCachedMessages, stats.Hits, stats.Misses, stats.OverflowPersistedCount)
			continue
		}

		res, err := runtime.Chat.ProcessTurn(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printTurn(out, res)
	}
}

func printTurn(out io.Writer, res *chat.TurnResult) {
	fmt.Fprintf(out, "\n%s\n", res.AssistantMessage.Content)
	for _, c := range res.AssistantMessage.Corrections {
		fmt.Fprintf(out, "  * %s -> %s (%s): %s\n", c.Original, c.Correction, c.Category, c.Explanation)
	}
	if res.AssistantMessage.MicroExercise != "" {
		fmt.Fprintf(out, "\nExercise: %s\n", res.AssistantMessage.MicroExercise)
	}
	if res.Feedback != nil {
		printFeedback(out, res.Feedback)
	}
	fmt.Fprintln(out)
}

func printFeedback(out io.Writer, fb *pedagogy.StructuredFeedback) {
	fmt.Fprintf(out, "\n--- Feedback after %d messages ---\n", fb.MessageCount)
	fmt.Fprintln(out, fb.Assessment)
	if fb.Grammar != nil {
		fmt.Fprintf(out, "Grammar focus: %s. %s\n", fb.Grammar.RuleName, fb.Grammar.Explanation)
	}
	for _, alt := range fb.Alternatives {
		fmt.Fprintf(out, "Try: %q instead of %q (%s)\n", alt.Alternative, alt.Original, alt.Formality)
	}
	if fb.NativeTranslation != "" {
		fmt.Fprintf(out, "Translation: %s\n", fb.NativeTranslation)
	}
	fmt.Fprintln(out, fb.Continuation)
}
