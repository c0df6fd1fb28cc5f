package model

// Well-known record types. The type field is open-ended; clients may send
// anything, these are just the values the inferrer and viewer care about.
const (
	TypeLuaToNUI  = "lua_to_nui"
	TypeNUIToLua  = "nui_to_lua"
	TypeFetchCall = "fetch_call"
	TypeConsole   = "console"
)

// TimestampField is set server-side on every persisted record; any
// client-supplied value is overwritten.
const TimestampField = "timestamp"

// Record is one ingested log record. The payload is a free-form JSON
// object and is persisted as-is, one self-contained line per record;
// nothing beyond the envelope fields is validated.
type Record map[string]any

// Type returns the record's type field, or "" when absent or not a string.
func (r Record) Type() string {
	return r.String("type")
}

// String returns the named field when it is a non-empty string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}
