package dict

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// posPrefix matches a part-of-speech marker at the start of a
// translation line, e.g. "n. ", "vt. ", "adj. ".
var posPrefix = regexp.MustCompile(`^[a-z]{1,6}\.\s+`)

// lemmaRef matches a base-form reference in the ECDICT exchange field,
// e.g. the "0:run" in "p:ran/d:ran/i:running/0:run".
var lemmaRef = regexp.MustCompile(`[012]:([a-zA-Z]+)`)

// ECDict serves glosses from an ECDICT SQLite database, the stardict
// table schema with word, translation and exchange columns.
//
// Source: https://github.com/skywind3000/ECDICT
type ECDict struct {
	db *sql.DB
}

// OpenECDict opens the database at path read-only and probes for the
// stardict table, so a missing or foreign file fails fast instead of
// failing on the first lookup.
func OpenECDict(path string) (*ECDict, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'stardict'`,
	).Scan(&name)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s has no stardict table", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &ECDict{db: db}, nil
}

// Close releases the underlying database handle.
func (d *ECDict) Close() error {
	return d.db.Close()
}

// Lookup implements Source. When the entry itself carries no
// translation but its exchange field names a base form ("ran" ->
// "run"), one lemma lookup is attempted.
func (d *ECDict) Lookup(word string) ([]string, error) {
	translation, exchange, found, err := d.query(word)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if glosses := parseTranslation(translation); len(glosses) > 0 {
		return glosses, nil
	}

	if m := lemmaRef.FindStringSubmatch(exchange); m != nil {
		lemma := strings.ToLower(m[1])
		if lemma == word {
			return nil, nil
		}
		translation, _, found, err = d.query(lemma)
		if err != nil {
			return nil, err
		}
		if found {
			return parseTranslation(translation), nil
		}
	}
	return nil, nil
}

func (d *ECDict) query(word string) (translation, exchange string, found bool, err error) {
	var t, x sql.NullString
	err = d.db.QueryRow(
		`SELECT translation, exchange FROM stardict WHERE word = ?`, word,
	).Scan(&t, &x)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("%w: querying %q: %v", ErrUnavailable, word, err)
	}
	return t.String, x.String, true, nil
}

// parseTranslation splits an ECDICT translation field into individual
// glosses: one sense per line, part-of-speech prefixes stripped,
// semicolon-packed synonyms separated.
func parseTranslation(translation string) []string {
	var glosses []string
	for _, line := range strings.Split(translation, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		line = posPrefix.ReplaceAllString(line, "")
		for _, part := range strings.FieldsFunc(line, isGlossSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				glosses = append(glosses, part)
			}
		}
	}
	return glosses
}

func isGlossSeparator(r rune) bool {
	return r == ';' || r == '；'
}
