package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/wizenheimer/banter"
)

var historyLines int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Starts an interactive chat session. Commands:
  /learn   toggle teach mode
  /cancel  leave teach mode, dropping a half-taught answer
  /regen   answer the last message again
  /clear   forget the conversation
  /stats   show session statistics
  /top     show the most used answers
  /quit    exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&historyLines, "history", "n", 10, "previous messages to show on start")
	rootCmd.AddCommand(chatCmd)
}

var (
	botLabel    = color.New(color.FgCyan, color.Bold).SprintFunc()
	userLabel   = color.New(color.FgGreen, color.Bold).SprintFunc()
	noticeStyle = color.New(color.FgYellow).SprintFunc()
	errorStyle  = color.New(color.FgRed).SprintFunc()
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	history := sess.engine.History()
	if historyLines >= 0 && len(history) > historyLines {
		history = history[len(history)-historyLines:]
	}
	for _, msg := range history {
		printMessage(msg)
	}

	for {
		prompt := promptui.Prompt{Label: promptLabel(sess.engine)}
		input, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := runChatCommand(ctx, sess.engine, input); quit {
				return nil
			}
			continue
		}

		reply, err := respondWithSpinner(ctx, sess.engine, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Println(errorStyle("✗ " + err.Error()))
			continue
		}
		printMessage(reply)
	}
}

// runChatCommand executes a slash command and reports whether to quit.
func runChatCommand(ctx context.Context, engine *banter.Engine, input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true
	case "/learn":
		printMessage(engine.SetLearning(!engine.Learning()))
	case "/cancel":
		if engine.Learning() {
			printMessage(engine.SetLearning(false))
		}
	case "/regen":
		reply, err := regenerateWithSpinner(ctx, engine)
		if err != nil {
			fmt.Println(errorStyle("✗ " + err.Error()))
			return false
		}
		printMessage(reply)
	case "/clear":
		engine.Clear(ctx)
		if history := engine.History(); len(history) > 0 {
			printMessage(history[len(history)-1])
		}
	case "/stats":
		printStats(engine.Stats())
	case "/top":
		printTop(engine.KnowledgeBase().MostUsed(5))
	default:
		fmt.Println(noticeStyle("Unknown command " + input + ". Try /learn, /cancel, /regen, /clear, /stats, /top or /quit."))
	}
	return false
}

func respondWithSpinner(ctx context.Context, engine *banter.Engine, input string) (banter.Message, error) {
	s := newTypingSpinner()
	s.Start()
	defer s.Stop()
	return engine.Respond(ctx, input)
}

func regenerateWithSpinner(ctx context.Context, engine *banter.Engine) (banter.Message, error) {
	s := newTypingSpinner()
	s.Start()
	defer s.Stop()
	return engine.Regenerate(ctx)
}

func newTypingSpinner() *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " typing..."
	s.Writer = os.Stderr
	return s
}

func promptLabel(engine *banter.Engine) string {
	if engine.Learning() {
		return "you (teaching)"
	}
	return "you"
}

func printMessage(msg banter.Message) {
	switch msg.Author {
	case banter.AuthorUser:
		fmt.Printf("%s %s\n", userLabel("you:"), msg.Text)
	default:
		fmt.Printf("%s %s\n", botLabel("banter:"), msg.Text)
	}
}

func printStats(stats banter.Stats) {
	fmt.Println(noticeStyle("📊 Session"))
	fmt.Printf("  messages:   %d (you %d, bot %d)\n", stats.TotalMessages, stats.UserMessages, stats.BotMessages)
	fmt.Printf("  entries:    %d (%d learned)\n", stats.Entries, stats.LearnedEntries)
	fmt.Printf("  sentiment:  +%d / =%d / -%d\n", stats.Sentiment.Positive, stats.Sentiment.Neutral, stats.Sentiment.Negative)
	if len(stats.Interests) > 0 {
		fmt.Printf("  interests:  %s\n", strings.Join(stats.Interests, ", "))
	}
	if stats.Learning {
		fmt.Println("  teach mode: on")
	}
}

func printTop(used []banter.EntryUsage) {
	if len(used) == 0 {
		fmt.Println(noticeStyle("No answers used yet."))
		return
	}
	for i, u := range used {
		fmt.Printf("  %d. %s ×%d (%s)\n", i+1, u.Entry.ID, u.Count, strings.Join(u.Entry.Patterns, ", "))
	}
}
