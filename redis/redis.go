package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/go-hclog"
)

// Store keeps bridge operations and address mappings in redis. Every
// operation record lives under bridgeop:<request id> and its request id is a
// member of exactly one bridgeops:<state> set.
type Store struct {
	pool   *redis.Pool
	logger hclog.Logger
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(cfg *config.Configuration, logger hclog.Logger) *Store {
	return NewWithAddr(fmt.Sprintf("%s:%d", cfg.Server.RedisHost, cfg.Server.RedisPort), logger)
}

func NewWithAddr(redisAddr string, logger hclog.Logger) *Store {
	return &Store{
		pool: &redis.Pool{
			MaxIdle:     5,
			IdleTimeout: 240 * time.Second,
			Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
		},
		logger: logger.Named("redis"),
	}
}

func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")

	return err
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func operationKey(requestID string) string {
	return "bridgeop:" + requestID
}

func receiptKey(receiptID string) string {
	return "bridgeop:receipt:" + receiptID
}

func stateSet(state types.State) string {
	return "bridgeops:" + string(state)
}

func mappingKey(managerAddr, origin string) string {
	return fmt.Sprintf("mapping:%s:%s", common.HexToAddress(managerAddr).Hex(), common.HexToAddress(origin).Hex())
}

func (s *Store) SaveOperation(op *types.BridgeOperation) error {
	if op == nil {
		return errors.New("null object to store")
	}

	if op.RequestID == "" {
		return errors.New("bridge operation cannot have empty request id")
	}

	if op.State == "" {
		return errors.New("bridge operation cannot have empty state")
	}

	opJSON, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("cannot marshal bridge operation to JSON: %w", err)
	}

	conn := s.pool.Get()
	defer conn.Close()

	prev, err := s.getOperation(conn, op.RequestID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}

	if err := conn.Send("MULTI"); err != nil {
		return err
	}

	if prev != nil && prev.State != op.State {
		_ = conn.Send("SREM", stateSet(prev.State), op.RequestID)
	}

	_ = conn.Send("SET", operationKey(op.RequestID), opJSON)
	_ = conn.Send("SADD", stateSet(op.State), op.RequestID)

	if op.ID != "" {
		_ = conn.Send("SET", receiptKey(op.ID), op.RequestID)
	}

	if _, err := conn.Do("EXEC"); err != nil {
		s.logger.Error("error Redis EXEC", "request", op.RequestID, "err", err)

		return err
	}

	return nil
}

// GetOperation looks id up as a receipt id first, then as a request id.
func (s *Store) GetOperation(id string) (*types.BridgeOperation, error) {
	conn := s.pool.Get()
	defer conn.Close()

	requestID, err := redis.String(conn.Do("GET", receiptKey(id)))
	if errors.Is(err, redis.ErrNil) {
		requestID = id
	} else if err != nil {
		s.logger.Error("error Redis GET", "key", receiptKey(id), "err", err)

		return nil, err
	}

	return s.getOperation(conn, requestID)
}

func (s *Store) getOperation(conn redis.Conn, requestID string) (*types.BridgeOperation, error) {
	data, err := redis.Bytes(conn.Do("GET", operationKey(requestID)))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("operation %s: %w", requestID, types.ErrNotFound)
	}

	if err != nil {
		s.logger.Error("error Redis GET", "key", operationKey(requestID), "err", err)

		return nil, err
	}

	var op types.BridgeOperation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("cannot unmarshal bridge operation %s: %w", requestID, err)
	}

	return &op, nil
}

// GetOperations returns every operation currently in state.
func (s *Store) GetOperations(state types.State) ([]*types.BridgeOperation, error) {
	conn := s.pool.Get()
	defer conn.Close()

	ops := make([]*types.BridgeOperation, 0)

	var cursor int64

	for {
		values, err := redis.Values(conn.Do("SSCAN", stateSet(state), cursor))
		if err != nil {
			return nil, err
		}

		var requestIDs []string
		if _, err := redis.Scan(values, &cursor, &requestIDs); err != nil {
			return nil, err
		}

		for _, requestID := range requestIDs {
			op, err := s.getOperation(conn, requestID)
			if errors.Is(err, types.ErrNotFound) {
				s.logger.Warn("dangling state set member", "state", state, "request", requestID)

				continue
			}

			if err != nil {
				return nil, err
			}

			if op.State == state {
				ops = append(ops, op)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return ops, nil
}

func (s *Store) GetMapping(managerAddr, origin string) (*types.AddressMapping, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", mappingKey(managerAddr, origin)))
	if errors.Is(err, redis.ErrNil) {
		return nil, types.ErrNotFound
	}

	if err != nil {
		s.logger.Error("error Redis GET", "key", mappingKey(managerAddr, origin), "err", err)

		return nil, err
	}

	var m types.AddressMapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot unmarshal address mapping: %w", err)
	}

	return &m, nil
}

// SaveMapping stores m unless a mapping for the same key exists already.
func (s *Store) SaveMapping(m *types.AddressMapping) error {
	if m == nil {
		return errors.New("null object to store")
	}

	if types.IsZeroAddress(m.Manager) || types.IsZeroAddress(m.Origin) || types.IsZeroAddress(m.Wrapped) {
		return errors.New("address mapping needs manager, origin and wrapped addresses")
	}

	recJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("cannot marshal address mapping to JSON: %w", err)
	}

	conn := s.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("SETNX", mappingKey(m.Manager, m.Origin), recJSON); err != nil {
		s.logger.Error("error Redis SETNX", "err", err)

		return err
	}

	return nil
}

// GetMappings lists every memoised mapping.
func (s *Store) GetMappings() ([]*types.AddressMapping, error) {
	conn := s.pool.Get()
	defer conn.Close()

	var (
		cursor int64
		res    []*types.AddressMapping
	)

	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", "mapping:*"))
		if err != nil {
			return nil, err
		}

		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			data, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				continue
			}

			if err != nil {
				return nil, err
			}

			var m types.AddressMapping
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, err
			}

			res = append(res, &m)
		}

		if cursor == 0 {
			break
		}
	}

	return res, nil
}
