package disc

import (
	"bufio"
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/buildkite/shellwords"
)

// runImage launches cmdline with the image path appended and scans its
// output for a test verdict. Emulators get a pty so they keep line buffering
// and color output as if run interactively.
func runImage(cmdline, image string) {
	args, err := shellwords.Split(cmdline)
	if err != nil {
		log.Fatal("run:", err)
	}
	args = append(args, image)

	ptmx, err := pty.New()
	if err != nil {
		log.Fatal("open pty:", err)
	}
	defer ptmx.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := ptmx.CommandContext(ctx, args[0], args[1:]...)
	err = cmd.Start()
	if err != nil {
		log.Fatal("start command:", err)
	}

	sigintr := make(chan os.Signal, 1)
	signal.Notify(sigintr, os.Interrupt)
	go func() {
		<-sigintr
		cancel()
	}()

	scanner := bufio.NewScanner(ptmx)
	exiting := false
	code := 0
	for scanner.Scan() {
		log.Println(scanner.Text())
		if exiting {
			continue
		}
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "fatal error:"), strings.HasPrefix(line, "panic:"):
			fallthrough
		case line == "FAIL":
			code = 1
			fallthrough
		case line == "PASS":
			exiting = true
			go func() {
				// give panic() time to print the stacktrace
				time.Sleep(500 * time.Millisecond)
				cancel()
			}()
		}
	}
	cmd.Wait()
	os.Exit(code)
}
