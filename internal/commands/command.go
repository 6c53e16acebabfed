package commands

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sandeepkv93/todod/internal/model"
)

type Type string

const (
	TypeAdd    Type = "add"
	TypeFilter Type = "filter"
	TypeSort   Type = "sort"
	TypeSearch Type = "search"
	TypeClear  Type = "clear"
	TypeDone   Type = "done"
	TypeRemove Type = "rm"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs carries the raw form fields; validation happens in the store.
type AddArgs struct {
	Title    string
	Priority string
	Category string
	Due      string
}

// FilterArgs holds only the fields the user named. Empty means unchanged.
type FilterArgs struct {
	Status   model.StatusFilter
	Priority model.Priority
	Category string
	Date     model.DateFilter
}

type SortArgs struct {
	Key   model.SortKey
	Order model.SortOrder
}

type SearchArgs struct {
	Query string
}

// TargetArgs names a task by its 1-based position in the visible list or by id.
type TargetArgs struct {
	Targets []string
}

type Command struct {
	Type   Type
	Raw    string
	Add    *AddArgs
	Filter *FilterArgs
	Sort   *SortArgs
	Search *SearchArgs
	Target *TargetArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	head := strings.ToLower(strings.Fields(raw)[0])
	if Type(head) == TypeSearch {
		return Command{Type: TypeSearch, Raw: input, Search: &SearchArgs{Query: restOf(raw)}}, nil
	}
	args, err := splitArgs(restOf(raw))
	if err != nil {
		return Command{}, err
	}

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeFilter:
		return parseFilter(input, args)
	case TypeSort:
		return parseSort(input, args)
	case TypeClear:
		return Command{Type: TypeClear, Raw: input}, nil
	case TypeDone, TypeRemove:
		return parseTarget(input, Type(head), args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// splitArgs splits on whitespace. A quote at the start of an argument or
// right after its key: groups words, so c:"Side project" and
// "c:Side project" are both one argument. Quotes inside a word, as in
// mom's, are kept.
func splitArgs(raw string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range raw {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case (r == '"' || r == '\'') && (!inToken || strings.HasSuffix(cur.String(), ":")):
			quote = r
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				out = append(out, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, &CommandError{Code: ErrCodeInvalidArgument, Message: "unterminated quote"}
	}
	if inToken {
		out = append(out, cur.String())
	}
	return out, nil
}

// restOf returns everything after the command word, verbatim.
func restOf(raw string) string {
	i := strings.IndexFunc(raw, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimLeftFunc(raw[i:], unicode.IsSpace)
}

// parseAdd pulls p:, c: and due: tokens out of the title.
func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{}
	words := make([]string, 0, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, ":")
		switch {
		case ok && val != "" && (key == "p" || key == "priority"):
			out.Priority = val
		case ok && val != "" && (key == "c" || key == "category"):
			out.Category = val
		case ok && val != "" && key == "due":
			out.Due = val
		default:
			words = append(words, arg)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	if out.Title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseFilter(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "filter requires key:value pairs"}
	}
	out := FilterArgs{}
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, ":")
		if !ok || val == "" {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("expected key:value, got %q", arg)}
		}
		switch strings.ToLower(key) {
		case "status":
			s := model.StatusFilter(strings.ToLower(val))
			if !s.IsValid() {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown status: %s", val)}
			}
			out.Status = s
		case "priority", "p":
			if strings.EqualFold(val, string(model.PriorityAll)) {
				out.Priority = model.PriorityAll
				continue
			}
			p, err := model.ParsePriority(val)
			if err != nil {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown priority: %s", val)}
			}
			out.Priority = p
		case "category", "c":
			out.Category = val
		case "date", "due":
			out.Date = model.DateFilter(strings.ToLower(val))
		default:
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown filter: %s", key)}
		}
	}
	return Command{Type: TypeFilter, Raw: raw, Filter: &out}, nil
}

var sortAliases = map[string]model.SortKey{
	"created":  model.SortCreated,
	"updated":  model.SortUpdated,
	"title":    model.SortTitle,
	"priority": model.SortPriority,
	"due":      model.SortDueDate,
	"duedate":  model.SortDueDate,
}

func parseSort(raw string, args []string) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "sort requires a key and an optional order"}
	}
	key, ok := sortAliases[strings.ToLower(args[0])]
	if !ok {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown sort key: %s", args[0])}
	}
	out := SortArgs{Key: key}
	if len(args) == 2 {
		order := model.SortOrder(strings.ToLower(args[1]))
		if !order.IsValid() {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown sort order: %s", args[1])}
		}
		out.Order = order
	}
	return Command{Type: TypeSort, Raw: raw, Sort: &out}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a task number or id", typ)}
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{Targets: args}}, nil
}
