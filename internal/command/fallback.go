package command

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const DefaultModelTimeout = 4 * time.Second

// FallbackParser asks a ModelParser first and answers with the regex grammar
// whenever the model is missing, slow, wrong-shaped or failing.
type FallbackParser struct {
	model   ModelParser
	regex   *RegexParser
	timeout time.Duration
	logger  zerolog.Logger
}

func NewFallbackParser(model ModelParser, timeout time.Duration, logger zerolog.Logger) *FallbackParser {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &FallbackParser{
		model:   model,
		regex:   NewRegexParser(),
		timeout: timeout,
		logger:  logger,
	}
}

func (p *FallbackParser) Parse(ctx context.Context, text string) Command {
	fallback := p.regex.Parse(ctx, text)
	if p.model == nil {
		return fallback
	}

	cmd, ok := p.askModel(ctx, text)
	if !ok {
		return fallback
	}

	// The grammar wins when it recognises something the model did not.
	if cmd.Kind == KindUnknown && fallback.Kind != KindUnknown {
		p.logger.Debug().Str("regex_kind", string(fallback.Kind)).Msg("model returned unknown, using regex result")
		return fallback
	}
	// "help" is an exact-match command; the model must not invent it.
	if cmd.Kind == KindHelp && fallback.Kind != KindHelp {
		return fallback
	}
	return cmd
}

func (p *FallbackParser) askModel(ctx context.Context, text string) (cmd Command, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("model parser panicked")
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.model.ParseCommand(ctx, text)
	if err != nil {
		p.logger.Warn().Err(err).Msg("model parser failed, falling back to regex")
		return Command{}, false
	}
	if !raw.Kind.Valid() {
		p.logger.Warn().Str("kind", string(raw.Kind)).Msg("model parser returned an unsupported command")
		return Command{}, false
	}
	return Normalize(raw), true
}
