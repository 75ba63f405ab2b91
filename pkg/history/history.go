package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

//ErrNotFound is returned when no record has the requested ID
var ErrNotFound = errors.New("scan record not found")

//Record is a stored scan output
type Record struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	TimeStamp time.Time    `json:"timestamp"`
	Output    score.Output `json:"output"`
}

//Score is one point of a source's score trend
type Score struct {
	Verdict    score.Verdict          `json:"verdict"`
	Metric     int                    `json:"metric"`
	Confidence diagnostics.Confidence `json:"confidence"`
	TimeStamp  time.Time              `json:"timestamp"`
}

//Store persists scan outputs per source
type Store interface {
	Save(source string, out score.Output) (*Record, error)
	//List returns the records of a source, oldest first
	List(source string) ([]*Record, error)
	Get(id string) (*Record, error)
	ScoreTrend(source string) ([]Score, error)
	Close() error
}

type dbStore struct {
	db         *badger.DB
	scanTable  string
	indexTable string
	now        func() time.Time
}

//NewDBStore opens (creating if needed) a badger-backed store in dir
func NewDBStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return open(badger.DefaultOptions(dir))
}

//NewInMemoryStore creates a store that lives as long as the process
func NewInMemoryStore() (Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (Store, error) {
	db, err := badger.Open(opts.WithLogger(badgerLogger{}))
	if err != nil {
		return nil, fmt.Errorf("opening scan history: %w", err)
	}
	return &dbStore{
		db:         db,
		scanTable:  "scan_",
		indexTable: "id_",
		now:        time.Now,
	}, nil
}

func (s *dbStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return errors.New("attempting to close uninitialised DB")
}

func (s *dbStore) Save(source string, out score.Output) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		Source:    source,
		TimeStamp: s.now().UTC(),
		Output:    out,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	key := s.scanKey(source, rec.TimeStamp, rec.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(toKey(s.indexTable, rec.ID), key)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *dbStore) List(source string) ([]*Record, error) {
	records := []*Record{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := toKey(s.scanTable, source, "\x00")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	return records, err
}

func (s *dbStore) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(toKey(s.indexTable, id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if item, err = txn.Get(key); err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *dbStore) ScoreTrend(source string) ([]Score, error) {
	records, err := s.List(source)
	if err != nil {
		return nil, err
	}
	trend := make([]Score, 0, len(records))
	for _, r := range records {
		trend = append(trend, Score{
			Verdict:    r.Output.Verdict,
			Metric:     r.Output.Score,
			Confidence: r.Output.Confidence,
			TimeStamp:  r.TimeStamp,
		})
	}
	return trend, nil
}

//scanKey orders records of a source by time; the NUL separator keeps one source from prefixing another
func (s *dbStore) scanKey(source string, ts time.Time, id string) []byte {
	return toKey(s.scanTable, source, "\x00", fmt.Sprintf("%020d", ts.UnixNano()), id)
}

func toKey(keys ...string) []byte {
	return []byte(strings.Join(keys, ""))
}

//badgerLogger routes badger's logging through the package logger
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, v ...interface{}) {
	util.Logger().Errorf(format, v...)
}

func (badgerLogger) Warningf(format string, v ...interface{}) {
	util.Logger().Warnf(format, v...)
}

func (badgerLogger) Infof(format string, v ...interface{}) {
	util.Logger().Debugf(format, v...)
}

func (badgerLogger) Debugf(format string, v ...interface{}) {
	util.Logger().Debugf(format, v...)
}
