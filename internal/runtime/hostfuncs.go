package runtime

import (
	"context"
	"strings"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// makeSplitNameFn creates the "split_name" host function.
//
// split_name(name, separators) → list of non-empty segments, splitting on
// any character in separators.
func makeSplitNameFn() *object.Builtin {
	return object.NewBuiltin("split_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("split_name", 2, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("split_name: name: %v", err)
		}
		seps, err := toString(args[1])
		if err != nil {
			return object.Errorf("split_name: separators: %v", err)
		}

		parts := SplitName(name, seps)
		items := make([]object.Object, len(parts))
		for i, p := range parts {
			items[i] = object.NewString(p)
		}
		return object.NewList(items)
	})
}

// SplitName splits a qualified name on any character in separators and drops
// empty segments.
func SplitName(name, separators string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
