package application

import (
	"log/slog"

	"github.com/luca-patrignani/mental-poker-holdem/domain/deck"
	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
	"github.com/luca-patrignani/mental-poker-holdem/ledger"
)

type Option func(*App)

func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

func WithEvaluator(e poker.Evaluator) Option {
	return func(a *App) { a.evaluator = e }
}

func WithScheme(s deck.Scheme) Option {
	return func(a *App) { a.scheme = s }
}

func WithBankroll(b *ledger.Bankroll) Option {
	return func(a *App) { a.bankroll = b }
}
