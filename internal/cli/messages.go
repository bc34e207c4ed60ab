package cli

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/campuscloset/closetmail/internal/mailtui/data"
	"github.com/campuscloset/closetmail/internal/mailtui/threading"
	"github.com/campuscloset/closetmail/internal/models"
)

// threadSummary is the JSON shape of one row of `closetmail threads`.
type threadSummary struct {
	Thread       string         `json:"thread"`
	PostID       int64          `json:"postId"`
	OtherUserID  int64          `json:"otherUserId"`
	MessageCount int            `json:"messageCount"`
	Unread       int            `json:"unread"`
	Latest       models.Message `json:"latest"`
}

func newInboxCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List messages you sent or received, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := rt.client()
			if err != nil {
				return err
			}
			msgs, err := provider.Inbox(commandContext(cmd))
			if err != nil {
				return requestError("load inbox", err)
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), msgs)
			}
			return writeMessages(cmd.OutOrStdout(), msgs, rt.cfg.API.UserID, time.Now())
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newSentCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sent",
		Short: "List messages you sent, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := rt.client()
			if err != nil {
				return err
			}
			msgs, err := provider.Sent(commandContext(cmd))
			if err != nil {
				return requestError("load sent messages", err)
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), msgs)
			}
			return writeMessages(cmd.OutOrStdout(), msgs, rt.cfg.API.UserID, time.Now())
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newThreadsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "threads",
		Aliases: []string{"thread"},
		Short:   "List conversations grouped by post and counterparty",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := rt.client()
			if err != nil {
				return err
			}
			msgs, err := provider.Inbox(commandContext(cmd))
			if err != nil {
				return requestError("load inbox", err)
			}
			me := rt.cfg.API.UserID
			threads := threading.BuildThreads(msgs, me)

			if jsonFlag(cmd) {
				out := make([]threadSummary, 0, len(threads))
				for _, thread := range threads {
					out = append(out, threadSummary{
						Thread:       thread.Key.String(),
						PostID:       thread.Key.PostID,
						OtherUserID:  thread.Key.CounterpartyID,
						MessageCount: thread.MessageCount,
						Unread:       thread.UnreadCount,
						Latest:       thread.Latest,
					})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			if len(threads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations yet.")
				return nil
			}
			now := time.Now()
			tbl := newTable("POST", "WITH", "MESSAGES", "UNREAD", "LAST", "PREVIEW")
			for _, thread := range threads {
				tbl.add(
					strconv.FormatInt(thread.Key.PostID, 10),
					userLabel(thread.Key.CounterpartyID),
					strconv.Itoa(thread.MessageCount),
					strconv.Itoa(thread.UnreadCount),
					formatWhen(thread.Latest.CreatedAt, now),
					preview(thread.Latest, me),
				)
			}
			return tbl.write(cmd.OutOrStdout())
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newConversationCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversation <postId> <otherUserId>",
		Aliases: []string{"conv"},
		Short:   "Show the full history of one conversation, oldest first",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseThreadArgs(cmd, args)
			if err != nil {
				return err
			}
			provider, err := rt.client()
			if err != nil {
				return err
			}
			msgs, err := provider.Conversation(commandContext(cmd), key.PostID, key.CounterpartyID)
			if err != nil {
				return requestError("load conversation", err)
			}
			threading.SortConversation(msgs)
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), msgs)
			}
			return writeConversation(cmd.OutOrStdout(), msgs, rt.cfg.API.UserID)
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newReplyCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply <postId> <otherUserId> <text>...",
		Short: "Send a message in a conversation",
		Long: `Send a message to another user about a post. Remaining arguments are
joined with spaces to form the message text.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseThreadArgs(cmd, args[:2])
			if err != nil {
				return err
			}
			req := models.SendRequest{
				ReceiverID: key.CounterpartyID,
				PostID:     key.PostID,
				Content:    strings.Join(args[2:], " "),
			}.Normalize()

			provider, err := rt.client()
			if err != nil {
				return err
			}
			if err := req.Validate(rt.cfg.API.UserID); err != nil {
				return usageError(cmd, "%v", err)
			}

			msg, err := provider.Send(commandContext(cmd), req)
			if err != nil {
				return requestError("send message", err)
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d to %s about post %d\n", msg.ID, userLabel(msg.ReceiverID), msg.PostID)
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newUnreadCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Print the number of unread messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := rt.client()
			if err != nil {
				return err
			}
			count, err := provider.UnreadCount(commandContext(cmd))
			if err != nil {
				return requestError("count unread", err)
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), models.UnreadCount{Unread: count})
			}
			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newReadCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Show one received message and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return usageError(cmd, "invalid message id %q", args[0])
			}
			provider, err := rt.client()
			if err != nil {
				return err
			}
			msg, err := provider.Message(commandContext(cmd), id)
			if err != nil {
				return requestError(fmt.Sprintf("read message %d", id), err)
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Message %d\n", msg.ID)
			fmt.Fprintf(out, "From: %s\n", userLabel(msg.SenderID))
			fmt.Fprintf(out, "Post: %d\n", msg.PostID)
			fmt.Fprintf(out, "Sent: %s\n", msg.CreatedAt.Local().Format(time.RFC1123))
			fmt.Fprintln(out)
			fmt.Fprintln(out, msg.Content)
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "output JSON")
}

func jsonFlag(cmd *cobra.Command) bool {
	value, _ := cmd.Flags().GetBool("json")
	return value
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("not a positive id: %q", value)
	}
	return id, nil
}

func parseThreadArgs(cmd *cobra.Command, args []string) (threading.Key, error) {
	postID, err := parseID(args[0])
	if err != nil {
		return threading.Key{}, usageError(cmd, "invalid post id %q", args[0])
	}
	otherID, err := parseID(args[1])
	if err != nil {
		return threading.Key{}, usageError(cmd, "invalid user id %q", args[1])
	}
	return threading.Key{PostID: postID, CounterpartyID: otherID}, nil
}

func writeMessages(out io.Writer, msgs []models.Message, me int64, now time.Time) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(out, "No messages.")
		return err
	}
	tbl := newTable("ID", "POST", "FROM", "TO", "READ", "WHEN", "CONTENT")
	for _, msg := range msgs {
		tbl.add(
			strconv.FormatInt(msg.ID, 10),
			strconv.FormatInt(msg.PostID, 10),
			selfLabel(msg.SenderID, me),
			selfLabel(msg.ReceiverID, me),
			formatYesNo(msg.Read),
			formatWhen(msg.CreatedAt, now),
			msg.Content,
		)
	}
	return tbl.write(out)
}

func writeConversation(out io.Writer, msgs []models.Message, me int64) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(out, "No messages yet.")
		return err
	}
	for _, msg := range msgs {
		stamp := msg.CreatedAt.Local().Format("2006-01-02 15:04")
		if _, err := fmt.Fprintf(out, "[%s] %s: %s\n", stamp, selfLabel(msg.SenderID, me), msg.Content); err != nil {
			return err
		}
	}
	return nil
}

func preview(msg models.Message, me int64) string {
	if msg.SenderID == me {
		return "you: " + msg.Content
	}
	return msg.Content
}

func userLabel(id int64) string {
	return "user " + strconv.FormatInt(id, 10)
}

func selfLabel(id, me int64) string {
	if id == me {
		return "you"
	}
	return userLabel(id)
}

func formatWhen(ts, now time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	if now.Sub(ts) < time.Minute && !ts.After(now.Add(time.Minute)) {
		return "just now"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

// requestError maps a failed backend call to an exit error. A 401 means the
// backend rejected the configured user id, which is a usage error.
func requestError(action string, err error) error {
	if data.StatusCode(err) == http.StatusUnauthorized {
		return Exitf(ExitCodeUsage, "%s: backend rejected the user id, check --user or api.user_id: %v", action, err)
	}
	return Exitf(ExitCodeFailure, "%s: %v", action, err)
}
