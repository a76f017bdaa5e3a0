package drafttoken

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed marks a token whose key or value does not follow either
// grammar. Callers skip such tokens; they never abort a batch.
var ErrMalformed = errors.New("MALFORMED_TOKEN")

// Token is one client-held draft entry as it arrives on the wire.
type Token struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DecodedToken pairs a wire token with its decode outcome. Exactly one of
// Record/Err is meaningful.
type DecodedToken struct {
	Token  Token
	Record Record
	Err    error
}

// EncodeKey renders a record back into the legacy wire key. Rating keys
// have the form f<aid>q<qid>r<uid>u<eid>; comment keys
// comment<aid>r<uid>u<eid>[c<cid>]n<0|1>.
func EncodeKey(rec Record) (string, error) {
	switch rec.Kind {
	case KindRating:
		if rec.QuestionID == nil {
			return "", fmt.Errorf("rating record without question id")
		}
		return fmt.Sprintf("f%dq%dr%du%d",
			rec.ApplicantID, *rec.QuestionID, rec.UnitID, rec.EvaluatorID), nil
	case KindComment:
		var b strings.Builder
		fmt.Fprintf(&b, "comment%dr%du%d", rec.ApplicantID, rec.UnitID, rec.EvaluatorID)
		if rec.CategoryID != nil {
			fmt.Fprintf(&b, "c%d", *rec.CategoryID)
		}
		show := 0
		if rec.ShowName != nil && *rec.ShowName {
			show = 1
		}
		fmt.Fprintf(&b, "n%d", show)
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown record kind %q", rec.Kind)
	}
}

// DecodeToken parses a single wire token. The two grammars have fixed
// field order and no delimiter escaping; any deviation (non-numeric id
// segment, missing delimiter, trailing garbage, non-numeric rating value)
// yields ErrMalformed.
func DecodeToken(tok Token) (Record, error) {
	if rest, ok := strings.CutPrefix(tok.Key, "comment"); ok {
		return decodeCommentKey(tok.Key, rest, tok.Value)
	}
	if rest, ok := strings.CutPrefix(tok.Key, "f"); ok {
		return decodeRatingKey(tok.Key, rest, tok.Value)
	}
	return Record{}, fmt.Errorf("%w: key %q matches neither grammar", ErrMalformed, tok.Key)
}

// DecodeBatch decodes every token, partial-tolerantly: unparseable tokens
// are reported per entry, never as a batch failure.
func DecodeBatch(tokens []Token) []DecodedToken {
	out := make([]DecodedToken, len(tokens))
	for i, tok := range tokens {
		rec, err := DecodeToken(tok)
		out[i] = DecodedToken{Token: tok, Record: rec, Err: err}
	}
	return out
}

func decodeRatingKey(key, rest, value string) (Record, error) {
	aid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	rest, err = expect(key, rest, 'q')
	if err != nil {
		return Record{}, err
	}
	qid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	rest, err = expect(key, rest, 'r')
	if err != nil {
		return Record{}, err
	}
	uid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	rest, err = expect(key, rest, 'u')
	if err != nil {
		return Record{}, err
	}
	eid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	if rest != "" {
		return Record{}, fmt.Errorf("%w: trailing %q in key %q", ErrMalformed, rest, key)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: score %q is not decimal text", ErrMalformed, value)
	}

	return Record{
		Kind:        KindRating,
		ApplicantID: aid,
		UnitID:      uid,
		EvaluatorID: eid,
		QuestionID:  &qid,
		Score:       score,
	}, nil
}

func decodeCommentKey(key, rest, value string) (Record, error) {
	aid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	rest, err = expect(key, rest, 'r')
	if err != nil {
		return Record{}, err
	}
	uid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}
	rest, err = expect(key, rest, 'u')
	if err != nil {
		return Record{}, err
	}
	eid, rest, err := cutID(key, rest)
	if err != nil {
		return Record{}, err
	}

	var categoryID *int64
	if after, ok := strings.CutPrefix(rest, "c"); ok {
		cid, remaining, err := cutID(key, after)
		if err != nil {
			return Record{}, err
		}
		categoryID = &cid
		rest = remaining
	}

	rest, err = expect(key, rest, 'n')
	if err != nil {
		return Record{}, err
	}
	var showName bool
	switch rest {
	case "0":
		showName = false
	case "1":
		showName = true
	default:
		return Record{}, fmt.Errorf("%w: show-name flag %q in key %q", ErrMalformed, rest, key)
	}

	return Record{
		Kind:        KindComment,
		ApplicantID: aid,
		UnitID:      uid,
		EvaluatorID: eid,
		CategoryID:  categoryID,
		ShowName:    &showName,
		Value:       value,
	}, nil
}

// cutID consumes a leading run of digits and returns it as an id.
func cutID(key, s string) (int64, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("%w: expected numeric id segment in key %q", ErrMalformed, key)
	}
	id, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: id segment in key %q: %v", ErrMalformed, key, err)
	}
	return id, s[i:], nil
}

func expect(key, s string, delim byte) (string, error) {
	if len(s) == 0 || s[0] != delim {
		return "", fmt.Errorf("%w: missing %q delimiter in key %q", ErrMalformed, string(delim), key)
	}
	return s[1:], nil
}
