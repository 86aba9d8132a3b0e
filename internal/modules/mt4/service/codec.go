package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"mt4_gateway/internal/exchange"
)

// Frame formats:
//
//	request:  "<alpha-command> <json-object-or-array>"
//	reply:    "<int-result-code>[ <json-object-or-array>]"
//	event:    "<name>[.<suffix>] <json-object-or-array>"

// Result codes of the command channel.
const (
	rcSuccess              = 0
	rcInvalidRequest       = 1
	rcUnknownCommand       = 2
	rcInvalidJSON          = 3
	rcMissingJSONKey       = 4
	rcMissingJSONIndex     = 5
	rcInvalidJSONKeyType   = 6
	rcInvalidJSONIndexType = 7
	rcInvalidOrderStatus   = 8
	rcUnknownSymbol        = 9
	rcOffQuotes            = 10
	rcRequote              = 11
	rcInvalidStops         = 12
	rcInvalidTicket        = 13
	rcExchangeRateFailed   = 14
	rcExecutionFailed      = 15
)

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// encodeRequest builds a request frame. A non-alphabetic command is a
// programming error and is rejected before any I/O.
func encodeRequest(command string, content interface{}) (string, error) {
	if command == "" {
		return "", &exchange.RequestError{Reason: "empty request command"}
	}
	if !isAlpha(command) {
		return "", &exchange.RequestError{Reason: fmt.Sprintf("expected alphabetic command string (got: '%s')", command)}
	}

	payload, err := sonic.MarshalString(content)
	if err != nil {
		return "", &exchange.RequestError{Reason: "failed to serialize request content", Err: err}
	}

	return command + " " + payload, nil
}

// parseJSONBody decodes a frame body and enforces that it is an object or an
// array, never a bare scalar.
func parseJSONBody(body string) (interface{}, error) {
	var payload interface{}
	if err := sonic.UnmarshalString(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	switch payload.(type) {
	case map[string]interface{}, []interface{}:
		return payload, nil
	}
	return nil, fmt.Errorf("body is not a JSON object or array (got: %T)", payload)
}

// parseReply splits a reply frame into its result code and payload. A
// missing payload normalizes to an empty object.
func parseReply(msg string) (int, interface{}, error) {
	codePart := msg
	body := ""
	if sep := strings.IndexByte(msg, ' '); sep != -1 {
		codePart = msg[:sep]
		body = msg[sep+1:]
	}

	code, err := strconv.Atoi(codePart)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid result code '%s'", codePart)
	}

	if body == "" {
		return code, map[string]interface{}{}, nil
	}

	payload, err := parseJSONBody(body)
	if err != nil {
		return 0, nil, err
	}
	return code, payload, nil
}

// parseEventFrame splits an event frame into its static name, optional
// dynamic suffix and payload.
func parseEventFrame(msg string) (name, suffix string, payload interface{}, err error) {
	sep := strings.IndexByte(msg, ' ')
	if sep == -1 {
		return "", "", nil, fmt.Errorf("missing body in event message '%s'", msg)
	}

	name = msg[:sep]
	if dot := strings.IndexByte(name, '.'); dot != -1 {
		suffix = name[dot+1:]
		name = name[:dot]
		if suffix == "" {
			return "", "", nil, fmt.Errorf("empty dynamic suffix in event name '%s'", msg[:sep])
		}
	}
	if !isAlpha(name) {
		return "", "", nil, fmt.Errorf("expected alphabetic event name (got: '%s')", name)
	}

	payload, err = parseJSONBody(msg[sep+1:])
	if err != nil {
		return "", "", nil, err
	}
	return name, suffix, payload, nil
}

// Shapes of the diagnostic payloads some failure codes carry.
var (
	keyErrorShape = optObj(map[string]field{
		"key":      opt(kindString, "?"),
		"actual":   opt(kindString, "?"),
		"expected": opt(kindString, "?"),
	})
	indexErrorShape = optObj(map[string]field{
		"index":    opt(kindInt, nil),
		"actual":   opt(kindString, "?"),
		"expected": opt(kindString, "?"),
	})
	statusErrorShape = optObj(map[string]field{
		"actual": opt(kindString, ""),
	})
)

type resultErrorFunc func(command string, payload interface{}) error

// resultErrorTable maps non-success result codes to error constructors.
// Codes absent from the table fall back to a generic execution error that
// carries the raw code.
var resultErrorTable = map[int]resultErrorFunc{
	rcInvalidRequest: func(command string, _ interface{}) error {
		return &exchange.RequestError{Reason: fmt.Sprintf("invalid request (command was '%s')", command)}
	},
	rcUnknownCommand: func(command string, _ interface{}) error {
		return &exchange.RequestError{Reason: fmt.Sprintf("server does not recognize command '%s'", command)}
	},
	rcInvalidJSON: func(command string, _ interface{}) error {
		return &exchange.RequestError{Reason: fmt.Sprintf("request content of command '%s' is not valid JSON", command)}
	},
	rcMissingJSONKey: func(command string, payload interface{}) error {
		doc, _ := conform(keyErrorShape, payload, "")
		return &exchange.RequestError{
			Reason: fmt.Sprintf("missing JSON key '%s' at command '%s'", docStr(docObj(doc)["key"]), command),
		}
	},
	rcMissingJSONIndex: func(command string, payload interface{}) error {
		doc, _ := conform(indexErrorShape, payload, "")
		return &exchange.RequestError{
			Reason: fmt.Sprintf("missing JSON index %d at command '%s'", docI64(docObj(doc)["index"]), command),
		}
	},
	rcInvalidJSONKeyType: func(command string, payload interface{}) error {
		doc := docObj(mustConform(keyErrorShape, payload))
		return &exchange.RequestError{
			Reason: fmt.Sprintf("JSON key '%s' at command '%s' has invalid type (expected: %s, got: %s)",
				docStr(doc["key"]), command, docStr(doc["expected"]), docStr(doc["actual"])),
		}
	},
	rcInvalidJSONIndexType: func(command string, payload interface{}) error {
		doc := docObj(mustConform(indexErrorShape, payload))
		return &exchange.RequestError{
			Reason: fmt.Sprintf("JSON index %d at command '%s' has invalid type (expected: %s, got: %s)",
				docI64(doc["index"]), command, docStr(doc["expected"]), docStr(doc["actual"])),
		}
	},
	rcInvalidOrderStatus: func(_ string, payload interface{}) error {
		doc := docObj(mustConform(statusErrorShape, payload))
		return &exchange.InvalidOrderStatusError{Status: docStr(doc["actual"])}
	},
}

// mustConform is for the diagnostic shapes above, which are all-optional and
// therefore cannot fail.
func mustConform(f field, payload interface{}) interface{} {
	v, _ := conform(f, payload, "")
	return v
}

// resultCodeError turns a non-success result code into its typed error.
func resultCodeError(command string, code int, payload interface{}) error {
	if fn, ok := resultErrorTable[code]; ok {
		return fn(command, payload)
	}
	return &exchange.ExecutionError{Command: command, Code: code}
}
