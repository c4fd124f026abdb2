// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fatih/color"
	"github.com/joho/godotenv"

	apiconnect "github.com/EndBlue418/Spark-Discord-BOT/internal/api/connect"
	"github.com/EndBlue418/Spark-Discord-BOT/internal/app/notification"
)

var (
	app     = kingpin.New("sparkcli", "Spark player control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Control token").Envar("SPARK_CONTROL_TOKEN").String()
	session = app.Flag("session", "Session ID").Envar("SPARK_SESSION").String()

	// play command
	playCmd   = app.Command("play", "Enqueue a search query or link")
	playInput = playCmd.Arg("input", "Query or link").Required().Strings()

	skipCmd       = app.Command("skip", "Skip the current track")
	skipToCmd     = app.Command("skipto", "Jump to a queue position")
	skipToPos     = skipToCmd.Arg("position", "1-based queue position").Required().Int()
	toggleCmd     = app.Command("toggle", "Pause or resume")
	shuffleCmd    = app.Command("shuffle", "Shuffle the queue")
	clearCmd      = app.Command("clear", "Clear the queue")
	loopCmd       = app.Command("loop", "Set or cycle the loop mode")
	loopMode      = loopCmd.Arg("mode", "off, track or queue (empty cycles)").String()
	previousCmd   = app.Command("previous", "Replay the previous track")
	leaveCmd      = app.Command("leave", "Stop playback and close the session")
	queueCmd      = app.Command("queue", "List upcoming tracks")
	queueLimit    = queueCmd.Flag("limit", "Max entries (0 lists all)").Default("10").Int()
	statusCmd     = app.Command("status", "Show playback status")
	watchCmd      = app.Command("watch", "Stream captions and events")
	newSessionCmd = app.Command("new-session", "Generate a session ID")
)

var (
	okColor      = color.New(color.FgGreen)
	errColor     = color.New(color.FgRed)
	headColor    = color.New(color.FgHiBlack)
	captionColor = color.New(color.FgCyan, color.Bold)
	romajiColor  = color.New(color.FgHiMagenta)
	transColor   = color.New(color.FgYellow)
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == newSessionCmd.FullCommand() {
		fmt.Println(snowflake.New(time.Now()))
		return
	}

	client := apiconnect.NewPlayerClient(http.DefaultClient, *server, *token)
	ctx := context.Background()
	sess := apiconnect.SessionRequest{SessionID: *session}

	var err error
	switch command {
	case playCmd.FullCommand():
		err = play(ctx, client, strings.Join(*playInput, " "))
	case skipCmd.FullCommand():
		err = ack(client.Skip(ctx, &sess))
	case skipToCmd.FullCommand():
		err = ack(client.SkipTo(ctx, &apiconnect.SkipToRequest{SessionID: *session, Position: *skipToPos}))
	case toggleCmd.FullCommand():
		err = toggle(ctx, client, &sess)
	case shuffleCmd.FullCommand():
		err = ack(client.Shuffle(ctx, &sess))
	case clearCmd.FullCommand():
		err = clearQueue(ctx, client, &sess)
	case loopCmd.FullCommand():
		err = loop(ctx, client, *loopMode)
	case previousCmd.FullCommand():
		err = ack(client.Previous(ctx, &sess))
	case leaveCmd.FullCommand():
		err = ack(client.Leave(ctx, &sess))
	case queueCmd.FullCommand():
		err = listQueue(ctx, client, *queueLimit)
	case statusCmd.FullCommand():
		err = status(ctx, client, &sess)
	case watchCmd.FullCommand():
		err = watch(ctx, client, &sess)
	}
	if err != nil {
		errColor.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func ack(resp *apiconnect.Ack, err error) error {
	if err != nil {
		return err
	}
	return printResult(resp.Result)
}

// printResult prints a result line and returns an error for failures so the
// process exits non-zero.
func printResult(r apiconnect.Result) error {
	if !r.Success {
		return fmt.Errorf("[%s] %s", r.Code, r.Message)
	}
	okColor.Println(r.Message)
	return nil
}

func play(ctx context.Context, client *apiconnect.PlayerClient, input string) error {
	resp, err := client.Play(ctx, &apiconnect.PlayRequest{SessionID: *session, Input: input})
	if err != nil {
		return err
	}
	if err := printResult(resp.Result); err != nil {
		return err
	}
	if resp.Name != "" {
		fmt.Printf("  %s: %s\n", resp.Route, resp.Name)
	}
	switch {
	case resp.Started:
		fmt.Printf("  Now playing (%d added)\n", resp.Added)
	default:
		fmt.Printf("  Queued at #%d (%d added)\n", resp.Position, resp.Added)
	}
	return nil
}

func toggle(ctx context.Context, client *apiconnect.PlayerClient, req *apiconnect.SessionRequest) error {
	resp, err := client.Toggle(ctx, req)
	if err != nil {
		return err
	}
	if err := printResult(resp.Result); err != nil {
		return err
	}
	fmt.Printf("  State: %s\n", resp.State)
	return nil
}

func clearQueue(ctx context.Context, client *apiconnect.PlayerClient, req *apiconnect.SessionRequest) error {
	resp, err := client.Clear(ctx, req)
	if err != nil {
		return err
	}
	if err := printResult(resp.Result); err != nil {
		return err
	}
	fmt.Printf("  Removed %d entries\n", resp.Removed)
	return nil
}

func loop(ctx context.Context, client *apiconnect.PlayerClient, mode string) error {
	resp, err := client.Loop(ctx, &apiconnect.LoopRequest{SessionID: *session, Mode: mode})
	if err != nil {
		return err
	}
	if err := printResult(resp.Result); err != nil {
		return err
	}
	fmt.Printf("  Loop: %s\n", resp.Mode)
	return nil
}

func listQueue(ctx context.Context, client *apiconnect.PlayerClient, limit int) error {
	resp, err := client.Queue(ctx, &apiconnect.QueueRequest{SessionID: *session, Limit: limit})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("[%s] %s", resp.Code, resp.Message)
	}
	if len(resp.Entries) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}
	for _, e := range resp.Entries {
		fmt.Printf("%3d. %s\n", e.Position, e.Title)
	}
	return nil
}

func status(ctx context.Context, client *apiconnect.PlayerClient, req *apiconnect.SessionRequest) error {
	resp, err := client.Status(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("[%s] %s", resp.Code, resp.Message)
	}
	fmt.Printf("State:   %s\n", resp.State)
	fmt.Printf("Loop:    %s\n", resp.Loop)
	if resp.Title != "" {
		fmt.Printf("Playing: %s [%s / %s]\n", resp.Title,
			formatMs(resp.ElapsedMs), formatMs(resp.DurationMs))
	}
	fmt.Printf("Queue:   %d\n", resp.QueueLength)
	if len(resp.Logs) > 0 {
		fmt.Println("Recent:")
		for _, l := range resp.Logs {
			headColor.Printf("  %s\n", l)
		}
	}
	return nil
}

func watch(ctx context.Context, client *apiconnect.PlayerClient, req *apiconnect.SessionRequest) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := client.Watch(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching. Press Ctrl+C to exit.")
	for stream.Receive() {
		printNotification(stream.Msg())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

func printNotification(n *notification.Notification) {
	switch n.Kind {
	case notification.KindCaption:
		if n.Caption == nil {
			return
		}
		c := n.Caption
		headColor.Printf("[%s %s/%s %3.0f%%] %s\n", n.SessionID,
			formatMs(c.ElapsedMs), formatMs(c.DurationMs), c.Progress*100, c.Title)
		if c.Placeholder != "" {
			headColor.Printf("  %s\n", c.Placeholder)
			return
		}
		captionColor.Printf("  %s\n", c.Original)
		if c.Transliteration != "" {
			romajiColor.Printf("  %s\n", c.Transliteration)
		}
		if c.Translation != "" {
			transColor.Printf("  %s\n", c.Translation)
		}
	case notification.KindEvent:
		if n.Event == nil {
			return
		}
		e := n.Event
		line := fmt.Sprintf("== %s (%s)", e.Type, e.State)
		if e.Title != "" {
			line += " " + e.Title
		} else if e.Entry != "" {
			line += " " + e.Entry
		}
		if e.Error != "" {
			errColor.Printf("%s: %s\n", line, e.Error)
			return
		}
		okColor.Println(line)
	case notification.KindLog:
		headColor.Printf("[%s] %s\n", n.SessionID, n.Log)
	}
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
