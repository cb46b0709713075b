package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Session is one chat conversation: the transcript, the completer that
// extends it and the resolver that turns markers into cards.
type Session struct {
	mu        sync.Mutex
	publishMu sync.Mutex
	history   []Message
	busy      bool
	completer Completer
	resolver  *Resolver
	onUpdate  func([]RenderedMessage)
}

type SessionConfig struct {
	Completer Completer
	Searcher  Searcher
	Resolver  ResolverConfig
	// OnUpdate receives the rendered transcript after every assistant delta
	// and every title resolution. Calls never overlap and each transcript is
	// rendered after the one before it was delivered.
	OnUpdate func([]RenderedMessage)
}

var ErrSessionBusy = errors.New("a reply is already being generated")

func NewSession(cfg SessionConfig) *Session {
	s := &Session{completer: cfg.Completer, onUpdate: cfg.OnUpdate}
	rcfg := cfg.Resolver
	if rcfg.Searcher == nil {
		rcfg.Searcher = cfg.Searcher
	}
	userHook := rcfg.OnResolved
	rcfg.OnResolved = func(title string, state TitleState) {
		if userHook != nil {
			userHook(title, state)
		}
		s.publish()
	}
	s.resolver = NewResolver(rcfg)
	return s
}

func (s *Session) Resolver() *Resolver {
	return s.resolver
}

// Messages returns the rendered transcript.
func (s *Session) Messages() []RenderedMessage {
	s.mu.Lock()
	history := append([]Message(nil), s.history...)
	s.mu.Unlock()
	return s.resolver.RenderAll(history)
}

// Send appends a user message and streams the assistant reply into the
// transcript. Only one reply is generated at a time.
func (s *Session) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyHistory
	}
	if s.completer == nil {
		return ErrNoCompleter
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.busy = true
	s.history = append(s.history, Message{Role: RoleUser, Content: content})
	history := append([]Message(nil), s.history...)
	s.history = append(s.history, Message{Role: RoleAssistant})
	reply := len(s.history) - 1
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		// A reply that produced nothing is dropped from the transcript.
		if reply < len(s.history) && s.history[reply].Content == "" {
			s.history = append(s.history[:reply], s.history[reply+1:]...)
		}
		s.mu.Unlock()
	}()

	s.publish()
	for delta, err := range s.completer.Stream(ctx, history) {
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.history[reply].Content += delta
		snapshot := append([]Message(nil), s.history...)
		s.mu.Unlock()

		s.resolver.Scan(snapshot)
		s.publish()
	}
	return nil
}

func (s *Session) publish() {
	if s.onUpdate == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.onUpdate(s.Messages())
}

func (s *Session) Close() {
	s.resolver.Close()
}
