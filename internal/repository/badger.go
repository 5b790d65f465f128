package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"address-search-api/internal/models"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const (
	customerPrefix    = "customer/"
	addressPrefix     = "addr/"
	customerSeqKey    = "seq/customer"
	addressSeqKey     = "seq/addr"
	sequenceBandwidth = 100
)

// BadgerStore implements the address store on an embedded BadgerDB.
// Keys carry big-endian ids so prefix iteration yields ascending id order.
type BadgerStore struct {
	db          *badger.DB
	customerSeq *badger.Sequence
	addressSeq  *badger.Sequence
}

type badgerLogger struct {
	logger zerolog.Logger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.logger.Error().Msgf(msg, args...) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.logger.Warn().Msgf(msg, args...) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.logger.Info().Msgf(msg, args...) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debug().Msgf(msg, args...) }

// OpenBadgerStore opens a store under path, creating the directory when missing.
// An empty path opens an in-memory store.
func OpenBadgerStore(path string, logger zerolog.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("repository: failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to open badger: %w", err)
	}

	customerSeq, err := db.GetSequence([]byte(customerSeqKey), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: failed to lease customer ids: %w", err)
	}
	addressSeq, err := db.GetSequence([]byte(addressSeqKey), sequenceBandwidth)
	if err != nil {
		customerSeq.Release()
		db.Close()
		return nil, fmt.Errorf("repository: failed to lease address ids: %w", err)
	}

	return &BadgerStore{db: db, customerSeq: customerSeq, addressSeq: addressSeq}, nil
}

// Close releases the id sequences and closes the database
func (s *BadgerStore) Close() error {
	err := errors.Join(s.customerSeq.Release(), s.addressSeq.Release())
	return errors.Join(err, s.db.Close())
}

// FetchAllAddresses returns every stored address ordered by id
func (s *BadgerStore) FetchAllAddresses(ctx context.Context) ([]models.Address, error) {
	return s.scan(ctx, func(models.Address) bool { return true })
}

// FetchAddressesByCustomer returns the addresses owned by customerID ordered by id
func (s *BadgerStore) FetchAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error) {
	return s.scan(ctx, func(a models.Address) bool {
		return a.CustomerID != nil && *a.CustomerID == customerID
	})
}

// FetchAddressesByPopularity returns the addresses whose popularity equals popularity, ordered by id
func (s *BadgerStore) FetchAddressesByPopularity(ctx context.Context, popularity int) ([]models.Address, error) {
	return s.scan(ctx, func(a models.Address) bool { return a.Popularity == popularity })
}

// AddCustomer stores a customer under a fresh id
func (s *BadgerStore) AddCustomer(ctx context.Context, name string) (models.Customer, error) {
	id, err := nextID(s.customerSeq)
	if err != nil {
		return models.Customer{}, fmt.Errorf("repository: failed to allocate customer id: %w", err)
	}

	customer := models.Customer{ID: id, Name: name}
	value, err := json.Marshal(customer)
	if err != nil {
		return models.Customer{}, fmt.Errorf("repository: failed to encode customer: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(customerPrefix, id), value)
	})
	if err != nil {
		return models.Customer{}, fmt.Errorf("repository: failed to insert customer: %w", err)
	}
	return customer, nil
}

// AddAddress stores an address. A missing customer is reported as models.ErrCustomerNotFound.
func (s *BadgerStore) AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error) {
	value, err := json.Marshal(address)
	if err != nil {
		return models.Address{}, fmt.Errorf("repository: failed to encode address: %w", err)
	}

	var id int64
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := requireCustomer(txn, address.CustomerID); err != nil {
			return err
		}
		var err error
		if id, err = nextID(s.addressSeq); err != nil {
			return err
		}
		return txn.Set(key(addressPrefix, id), value)
	})
	if err != nil {
		return models.Address{}, fmt.Errorf("repository: failed to insert address: %w", err)
	}

	return stored(id, address), nil
}

// CopyAddresses bulk loads addresses through a write batch and returns the number of rows written.
// Every referenced customer must exist before anything is written.
func (s *BadgerStore) CopyAddresses(ctx context.Context, addresses []models.NewAddress) (int64, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		seen := make(map[int64]struct{})
		for _, a := range addresses {
			if a.CustomerID == nil {
				continue
			}
			if _, ok := seen[*a.CustomerID]; ok {
				continue
			}
			if err := requireCustomer(txn, a.CustomerID); err != nil {
				return err
			}
			seen[*a.CustomerID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy addresses: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, a := range addresses {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		value, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to encode address: %w", err)
		}
		id, err := nextID(s.addressSeq)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to allocate address id: %w", err)
		}
		if err := wb.Set(key(addressPrefix, id), value); err != nil {
			return 0, fmt.Errorf("repository: failed to copy addresses: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("repository: failed to flush addresses: %w", err)
	}
	return int64(len(addresses)), nil
}

func (s *BadgerStore) scan(ctx context.Context, keep func(models.Address) bool) ([]models.Address, error) {
	addresses := []models.Address{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(addressPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()

			var rec models.NewAddress
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %x: %w", item.Key(), err)
			}

			a := stored(idFromKey(item.Key(), addressPrefix), rec)
			if keep(a) {
				addresses = append(addresses, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to scan addresses: %w", err)
	}
	return addresses, nil
}

func requireCustomer(txn *badger.Txn, customerID *int64) error {
	if customerID == nil {
		return nil
	}
	_, err := txn.Get(key(customerPrefix, *customerID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("customer %d: %w", *customerID, models.ErrCustomerNotFound)
	}
	return err
}

// nextID skips the zero value so ids start at 1 like BIGSERIAL
func nextID(seq *badger.Sequence) (int64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		if id, err = seq.Next(); err != nil {
			return 0, err
		}
	}
	return int64(id), nil
}

func key(prefix string, id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id))
	return k
}

func idFromKey(k []byte, prefix string) int64 {
	return int64(binary.BigEndian.Uint64(k[len(prefix):]))
}
