package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// fakeContext implements the parts of tele.Context the bot uses. Calling
// any other method panics on the nil embedded interface.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	text    string
	args    []string
	replies []string
}

func (f *fakeContext) Chat() *tele.Chat   { return f.chat }
func (f *fakeContext) Sender() *tele.User { return f.sender }
func (f *fakeContext) Text() string       { return f.text }
func (f *fakeContext) Args() []string     { return f.args }

func (f *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, fmt.Sprint(what))
	return nil
}

func (f *fakeContext) lastReply() string {
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

func groupContext(chatID, userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID, Type: tele.ChatGroup},
		sender: &tele.User{ID: userID},
	}
}

func privateContext(userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		sender: &tele.User{ID: userID},
	}
}

// spy is a handler that records whether it ran.
type spy struct{ calls int }

func (s *spy) handle(tele.Context) error {
	s.calls++
	return nil
}
