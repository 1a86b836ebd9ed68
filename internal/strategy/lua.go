package strategy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/cardguess/internal/guess/domain"
	apperrors "github.com/louisbranch/cardguess/internal/platform/errors"
)

const guessFunction = "guess"

// Script is a strategy backed by a Lua chunk defining
//
//	function guess(round, history) ... end
//
// where history is an array of tables with the fields human_guess, draw,
// human_result, opponent_guess and opponent_result, and the return value is
// "Red" or "Blue". A Script is not safe for concurrent use.
type Script struct {
	name  string
	state *lua.State
}

// LoadScriptFile loads a strategy script from disk.
func LoadScriptFile(path string) (*Script, error) {
	state := newState()
	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, strategyError(path, "load lua", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return initScript(name, state)
}

// LoadScript loads a strategy script from source text.
func LoadScript(name, source string) (*Script, error) {
	state := newState()
	if err := lua.LoadString(state, source); err != nil {
		return nil, strategyError(name, "load lua", err)
	}
	return initScript(name, state)
}

func newState() *lua.State {
	state := lua.NewState()
	lua.OpenLibraries(state)
	return state
}

func initScript(name string, state *lua.State) (*Script, error) {
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, strategyError(name, "run lua", err)
	}
	state.Global(guessFunction)
	defer state.Pop(1)
	if !state.IsFunction(-1) {
		return nil, strategyError(name, "script must define function guess(round, history)", nil)
	}
	return &Script{name: name, state: state}, nil
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Guess calls the script's guess function.
func (s *Script) Guess(round int, history []domain.RoundRecord) (domain.Outcome, error) {
	state := s.state
	top := state.Top()
	defer state.SetTop(top)

	state.Global(guessFunction)
	state.PushInteger(round)
	pushHistory(state, history)
	if err := state.ProtectedCall(2, 1, 0); err != nil {
		return domain.OutcomeUnspecified, strategyError(s.name, fmt.Sprintf("round %d", round), err)
	}

	value, ok := state.ToString(-1)
	if !ok {
		return domain.OutcomeUnspecified, strategyError(s.name,
			fmt.Sprintf("round %d: guess must return a string, got %s", round, lua.TypeNameOf(state, -1)), nil)
	}
	outcome, err := domain.ParseOutcome(value)
	if err != nil {
		return domain.OutcomeUnspecified, strategyError(s.name, fmt.Sprintf("round %d: guess returned %q", round, value), err)
	}
	return outcome, nil
}

func pushHistory(state *lua.State, history []domain.RoundRecord) {
	state.CreateTable(len(history), 0)
	for i, r := range history {
		state.CreateTable(0, 5)
		setStringField(state, "human_guess", r.HumanGuess.String())
		setStringField(state, "draw", r.Draw.String())
		setStringField(state, "human_result", r.HumanResult.String())
		setStringField(state, "opponent_guess", r.OpponentGuess.String())
		setStringField(state, "opponent_result", r.OpponentResult.String())
		state.RawSetInt(-2, i+1)
	}
}

func setStringField(state *lua.State, key, value string) {
	state.PushString(value)
	state.SetField(-2, key)
}

func strategyError(name, message string, cause error) error {
	msg := "strategy " + name + ": " + message
	if cause == nil {
		return apperrors.WithMetadata(apperrors.CodeStrategyFailed, msg, map[string]string{"strategy": name})
	}
	err := apperrors.Wrap(apperrors.CodeStrategyFailed, msg, cause)
	err.Metadata = map[string]string{"strategy": name}
	return err
}
