package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/switchboard/chat"
	"github.com/jmcleod/switchboard/console"
	"github.com/jmcleod/switchboard/routing"
)

var (
	chatModel    string
	chatNoMemory bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [MESSAGE]",
	Short: "Send test messages through the gateway",
	Long: `Send test messages through the gateway's routing. With MESSAGE, send it
once and print the reply. Without, read messages from standard input one line
at a time until end of input; "/clear" starts over and "/exit" quits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := routing.ParseModel(chatModel)
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), func(ctx context.Context, c *console.Console) error {
			p := c.Chat()
			if err := p.SetModel(model); err != nil {
				return err
			}
			p.SetMemory(!chatNoMemory)

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return sendChat(ctx, out, p, args[0])
			}
			return chatLoop(ctx, cmd.InOrStdin(), out, p)
		})
	},
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, p *chat.Playground) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/exit":
			return nil
		case "/clear":
			p.Clear()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}
		// A refused message is reported and the loop carries on.
		if err := sendChat(ctx, out, p, line); err != nil && !isGatewayRefusal(err) {
			return err
		}
	}
	return sc.Err()
}

func sendChat(ctx context.Context, out io.Writer, p *chat.Playground, msg string) error {
	reply, err := p.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return err
		}
		fmt.Fprintln(out, reply.Content)
		return userFacing(err)
	}
	fmt.Fprintln(out, reply.Content)
	fmt.Fprintf(out, "(%d tokens, %s, %s)\n", reply.TotalTokens, reply.Latency, reply.Model)
	return nil
}

func isGatewayRefusal(err error) bool {
	var me *messageError
	return errors.As(err, &me)
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", string(chat.DefaultModel), "Logical model: smart, fast, cheap or any")
	chatCmd.Flags().BoolVar(&chatNoMemory, "no-memory", false, "Send each message without the earlier turns")
	rootCmd.AddCommand(chatCmd)
}
