package smw

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
)

// SMW datatype ids, see https://www.semantic-mediawiki.org/wiki/Help:API:ask
const (
	TypePage       = "_wpg"
	TypeText       = "_txt"
	TypeQuantity   = "_qty"
	TypeNumber     = "_num"
	TypeDate       = "_dat"
	TypeExternalID = "_eid"
)

// Unix seconds of 0001-01-01T00:00:00Z and 9999-12-31T23:59:59Z
const (
	minTimestamp = -62135596800
	maxTimestamp = 253402300799
)

// ModeThis is the print mode of the page column itself
const ModeThis = 2

// decodeFunc converts one wire value. false drops the value.
type decodeFunc func(pr *PrintRequest, raw interface{}) (Value, bool)

var decoders = map[string]decodeFunc{
	TypePage:       decodePage,
	TypeText:       decodeAs(KindText),
	TypeQuantity:   decodeAs(KindQuantity),
	TypeNumber:     decodeNumber,
	TypeDate:       decodeDate,
	TypeExternalID: decodeAs(KindExternalID),
}

// PrintRequest describes one requested output column of an ask query.
// See https://www.semantic-mediawiki.org/wiki/Serialization_(JSON)
type PrintRequest struct {
	Label  string
	Key    string
	Redi   string
	TypeID string
	Mode   int
	Format string // empty when the wiki sent none

	debug  bool
	logger *slog.Logger
}

// NewPrintRequest builds a PrintRequest from a printrequests entry
func NewPrintRequest(record map[string]interface{}, debug bool, logger *slog.Logger) *PrintRequest {
	if logger == nil {
		logger = slog.Default()
	}
	pr := &PrintRequest{
		Label:  stringField(record, "label"),
		Key:    stringField(record, "key"),
		Redi:   stringField(record, "redi"),
		TypeID: stringField(record, "typeid"),
		Mode:   intField(record, "mode"),
		Format: stringField(record, "format"),
		debug:  debug,
		logger: logger,
	}
	if debug {
		logger.Debug("Print request", "printrequest", pr.String())
	}
	return pr
}

func (pr *PrintRequest) String() string {
	return fmt.Sprintf("PrintRequest(label='%s' key='%s' redi='%s' typeid='%s' mode=%d format='%s')",
		pr.Label, pr.Key, pr.Redi, pr.TypeID, pr.Mode, pr.Format)
}

// Deserialize extracts this column's value from one raw result record.
func (pr *PrintRequest) Deserialize(record map[string]interface{}) Value {
	printouts, _ := record["printouts"].(map[string]interface{})
	raw, ok := printouts[pr.Label]
	if !ok {
		// The page column is not part of the printouts; it is the record itself.
		if pr.Label != "" && pr.Mode != ModeThis {
			return Null()
		}
		raw = record
	}

	var value Value
	if list, isList := raw.([]interface{}); isList {
		values := make([]Value, 0, len(list))
		for _, item := range list {
			if v, keep := pr.deserializeSingle(item); keep {
				values = append(values, v)
			}
		}
		value = collapse(values)
	} else if v, keep := pr.deserializeSingle(raw); keep {
		value = v
	}

	if pr.debug {
		pr.logger.Debug("Deserialized printout",
			"label", pr.Label,
			"typeid", pr.TypeID,
			"value", value.String())
	}
	return value
}

func (pr *PrintRequest) deserializeSingle(raw interface{}) (Value, bool) {
	decode, ok := decoders[pr.TypeID]
	if !ok {
		return passthrough(KindUnknown, raw), true
	}
	return decode(pr, raw)
}

func decodeAs(kind Kind) decodeFunc {
	return func(_ *PrintRequest, raw interface{}) (Value, bool) {
		return passthrough(kind, raw), true
	}
}

func decodePage(_ *PrintRequest, raw interface{}) (Value, bool) {
	var title string
	switch v := raw.(type) {
	case map[string]interface{}:
		title, _ = v["fulltext"].(string)
	case string:
		title = v
	default:
		return passthrough(KindUnknown, raw), true
	}
	if title != "" {
		if unescaped, err := url.PathUnescape(title); err == nil {
			title = unescaped
		}
	}
	return PageValue(title), true
}

func decodeNumber(pr *PrintRequest, raw interface{}) (Value, bool) {
	switch v := raw.(type) {
	case float64:
		return IntValue(int(v)), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return IntValue(n), true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return IntValue(int(f)), true
		}
	}
	pr.logger.Debug("Number printout kept as is", "label", pr.Label, "value", raw)
	return passthrough(KindUnknown, raw), true
}

// decodeDate reads the nested Unix timestamp. Missing or out of range
// timestamps drop the value but never fail the record.
func decodeDate(pr *PrintRequest, raw interface{}) (Value, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return pr.drop("Dropping date without timestamp", "value", raw)
	}

	var ts int64
	switch v := m["timestamp"].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return pr.drop("Dropping unparseable timestamp", "timestamp", v)
		}
		ts = n
	case float64:
		if math.IsNaN(v) || v < minTimestamp || v > maxTimestamp {
			return pr.drop("Dropping out of range timestamp", "timestamp", v)
		}
		ts = int64(v)
	default:
		return pr.drop("Dropping date without timestamp", "value", raw)
	}

	if ts < minTimestamp || ts > maxTimestamp {
		return pr.drop("Dropping out of range timestamp", "timestamp", ts)
	}
	return DateValue(time.Unix(ts, 0)), true
}

// drop logs and counts a value that is left out of its column
func (pr *PrintRequest) drop(msg string, attrs ...any) (Value, bool) {
	metrics.DroppedValues.WithLabelValues(pr.TypeID).Inc()
	pr.logger.Warn(msg, append([]any{"label", pr.Label, "typeid", pr.TypeID}, attrs...)...)
	return Value{}, false
}

func stringField(record map[string]interface{}, key string) string {
	switch v := record[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intField(record map[string]interface{}, key string) int {
	switch v := record[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
