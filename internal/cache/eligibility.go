package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	celgo "github.com/google/cel-go/cel"
)

// Language selects the rule engine used for eligibility expressions.
type Language string

const (
	LanguageExpr Language = "expr"
	LanguageCEL  Language = "cel"
)

type ruleFunc func(env map[string]any) (bool, error)

// CompileEligibility compiles a boolean rule into a durable eligibility
// predicate. The rule sees `key` and `payload`, the latter being the
// payload's JSON form (so fields use their JSON names), e.g.
//
//	payload.role != "guest" && payload.email != ""
//
// An empty expression admits everything. Evaluation errors reject the payload.
func CompileEligibility[T any](lang Language, expression string, log *slog.Logger) (func(string, T) bool, error) {
	if expression == "" {
		return nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	var (
		rule ruleFunc
		err  error
	)
	switch lang {
	case LanguageExpr, "":
		rule, err = compileExpr(expression)
	case LanguageCEL:
		rule, err = compileCEL(expression)
	default:
		return nil, fmt.Errorf("unknown eligibility language %q", lang)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compile eligibility %q: %w", expression, err)
	}

	return func(key string, payload T) bool {
		env, err := ruleEnv(key, payload)
		if err == nil {
			var ok bool
			if ok, err = rule(env); err == nil {
				return ok
			}
		}
		log.Warn("Eligibility evaluation failed", "key", key, "error", err)
		return false
	}, nil
}

func compileExpr(expression string) (ruleFunc, error) {
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{"key": "", "payload": map[string]any{}}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}
	return func(env map[string]any) (bool, error) {
		out, err := expr.Run(program, env)
		if err != nil {
			return false, err
		}
		return asBool(out)
	}, nil
}

func compileCEL(expression string) (ruleFunc, error) {
	env, err := celgo.NewEnv(
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("payload", celgo.DynType),
	)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return func(vars map[string]any) (bool, error) {
		out, _, err := program.Eval(vars)
		if err != nil {
			return false, err
		}
		return asBool(out.Value())
	}, nil
}

func ruleEnv(key string, payload any) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return map[string]any{"key": key, "payload": doc}, nil
}

func asBool(out any) (bool, error) {
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out)
	}
	return b, nil
}
