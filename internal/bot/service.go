package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/ai"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/domain"
	"github.com/Vovarama1992/mpc-whatsapp-bot/internal/errs"
)

type service struct {
	store    Store
	ai       ai.AI
	notifier Notifier
	cat      domain.Catalog
	log      zerolog.Logger
	observer Observer

	flows  map[domain.Flow]*flowDef
	resets map[string]bool

	aiTimeout     time.Duration
	notifyTimeout time.Duration
	now           func() time.Time
}

type Option func(*service)

func WithObserver(o Observer) Option {
	return func(s *service) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithTimeouts(aiTimeout, notifyTimeout time.Duration) Option {
	return func(s *service) {
		s.aiTimeout = aiTimeout
		s.notifyTimeout = notifyTimeout
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store Store, aiClient ai.AI, notifier Notifier, cat domain.Catalog, log zerolog.Logger, opts ...Option) Service {
	if aiClient == nil {
		aiClient = ai.Disabled{}
	}

	s := &service{
		store:         store,
		ai:            aiClient,
		notifier:      notifier,
		cat:           cat,
		log:           log.With().Str("component", "bot").Logger(),
		observer:      nopObserver{},
		flows:         buildFlows(cat),
		resets:        map[string]bool{},
		aiTimeout:     15 * time.Second,
		notifyTimeout: 10 * time.Second,
		now:           time.Now,
	}
	for _, k := range cat.ResetKeywords {
		s.resets[strings.ToLower(strings.TrimSpace(k))] = true
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) HandleMessage(ctx context.Context, userID, raw string) string {
	text := strings.TrimSpace(raw)
	lower := strings.ToLower(text)

	sess, isNew, loadErr := s.loadSession(ctx, userID)
	if loadErr != nil {
		s.log.Error().Err(loadErr).Fields(errs.Args(loadErr)).Str("user", userID).Msg("load session failed, starting over")
		s.observer.SideEffectFailed("session_load")
		sess = domain.NewSession(userID)
	}

	s.log.Debug().
		Str("user", userID).
		Str("state", string(sess.State)).
		Str("flow", string(sess.Flow)).
		Msg("inbound message")

	var reply string
	switch {
	case loadErr != nil:
		reply = withMenu(s.cat, startOverText)
	case s.resets[lower]:
		sess.Reset()
		reply = MainMenu(s.cat)
	case isNew:
		reply = welcomeText(s.cat)
	case sess.Idle():
		reply = s.dispatchMenu(ctx, sess, text)
	default:
		reply = s.dispatchStep(ctx, sess, text)
	}

	s.observer.MessageHandled(sess.Flow)

	sess.UpdatedAt = s.now()
	if err := s.store.UpsertSession(ctx, sess); err != nil {
		s.log.Error().Err(err).Fields(errs.Args(err)).Str("user", userID).Msg("save session failed")
		s.observer.SideEffectFailed("session_save")
	}

	return reply
}

func (s *service) loadSession(ctx context.Context, userID string) (*domain.Session, bool, error) {
	sess, err := s.store.GetSession(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewSession(userID), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if sess.Answers == nil {
		sess.Answers = map[string]string{}
	}
	return sess, false, nil
}

// dispatchMenu: сессия в меню, текст трактуется как номер пункта.
func (s *service) dispatchMenu(ctx context.Context, sess *domain.Session, text string) string {
	option := stripKeycap(text)

	if flow, ok := menuOrder[option]; ok {
		return s.start(sess, flow)
	}
	if option == menuPrices {
		return PricesText(s.cat)
	}
	if isNumber(option) {
		return withMenu(s.cat, invalidOptionText)
	}
	if prompt, ok := s.aiCommand(text); ok {
		return s.askAI(ctx, prompt)
	}
	return s.fallback(ctx, text)
}

// start переводит сессию на первый шаг потока.
func (s *service) start(sess *domain.Session, flow domain.Flow) string {
	def, ok := s.flows[flow]
	if !ok || len(def.steps) == 0 {
		sess.Reset()
		return withMenu(s.cat, invalidOptionText)
	}
	first := def.steps[0]
	sess.Flow = flow
	sess.State = first.state
	sess.Answers = map[string]string{}
	return first.prompt(s.cat, sess)
}

// dispatchStep: линейный сбор данных по таблице потока.
func (s *service) dispatchStep(ctx context.Context, sess *domain.Session, text string) string {
	def, ok := s.flows[sess.Flow]
	idx := -1
	if ok {
		idx = def.index(sess.State)
	}
	if idx < 0 {
		s.log.Warn().
			Str("user", sess.UserID).
			Str("state", string(sess.State)).
			Str("flow", string(sess.Flow)).
			Msg("unknown session state, resetting")
		sess.Reset()
		return withMenu(s.cat, startOverText)
	}

	cur := def.steps[idx]
	if cur.branch != nil {
		return cur.branch(ctx, s, sess, text)
	}

	value := text
	if cur.normalize != nil {
		v, accepted := cur.normalize(s.cat, sess, text)
		if !accepted {
			return invalidNumberText + " " + cur.prompt(s.cat, sess)
		}
		value = v
	}
	if cur.field != "" {
		sess.Set(cur.field, value)
	}

	if idx == len(def.steps)-1 {
		return s.finish(ctx, sess)
	}

	next := def.steps[idx+1]
	sess.State = next.state
	return next.prompt(s.cat, sess)
}

// finish закрывает поток: побочные эффекты, сброс сессии, итоговый текст с меню.
func (s *service) finish(ctx context.Context, sess *domain.Session) string {
	flow := sess.Flow
	def := s.flows[flow]

	var summary string
	if def != nil && def.complete != nil {
		summary = def.complete(ctx, s, sess)
	}

	s.log.Info().Str("user", sess.UserID).Str("flow", string(flow)).Msg("flow completed")
	s.observer.FlowCompleted(flow)

	sess.Reset()
	return withMenu(s.cat, summary)
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// --- ИИ ---

// aiCommand: «ai <вопрос>», «gpt <вопрос>», «chat <вопрос>».
func (s *service) aiCommand(text string) (string, bool) {
	for _, p := range s.cat.AIPrefixes {
		prefix := p + " "
		if len(text) > len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			return strings.TrimSpace(text[len(prefix):]), true
		}
	}
	return "", false
}

func (s *service) askAI(ctx context.Context, prompt string) string {
	answer, err := s.complete(ctx, fmt.Sprintf(aiCommandSystemPrompt, s.cat.ShopName), prompt)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return aiDisabledText
	case err != nil:
		return aiErrorText
	}
	return answer
}

// fallback: свободный текст в меню: ИИ, если он есть, иначе напоминание про меню.
func (s *service) fallback(ctx context.Context, text string) string {
	answer, err := s.complete(ctx, aiFallbackSystemPrompt, fmt.Sprintf(aiFallbackUserPrompt, s.cat.ShopName, text))
	if err != nil {
		return withMenu(s.cat, fallbackText)
	}
	return answer + "\n\n" + aiBackToMenuText
}
