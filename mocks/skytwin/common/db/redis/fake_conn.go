package redis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gomodule/redigo/redis"
)

// Store is an in-memory stand-in for the redis commands used by the twin service.
type Store struct {
	mu      sync.Mutex
	strings map[string]string
	lists   map[string][]string
	sets    map[string]map[string]struct{}
	// FailCommands makes the listed commands return an error.
	FailCommands map[string]bool
	Commands     []string
}

func NewStore() *Store {
	return &Store{
		strings:      make(map[string]string),
		lists:        make(map[string][]string),
		sets:         make(map[string]map[string]struct{}),
		FailCommands: make(map[string]bool),
	}
}

// NewPool returns a redigo pool whose connections all share s.
func NewPool(s *Store) *redis.Pool {
	return &redis.Pool{
		MaxIdle: 3,
		Dial: func() (redis.Conn, error) {
			return &Conn{store: s}, nil
		},
	}
}

func (s *Store) String(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strings[key]
	return v, ok
}

func (s *Store) List(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lists[key]...)
}

type Conn struct {
	store   *Store
	multi   bool
	queued  [][]interface{}
	pending []interface{}
}

func (c *Conn) Close() error { return nil }
func (c *Conn) Err() error   { return nil }
func (c *Conn) Flush() error { return nil }

func (c *Conn) Send(commandName string, args ...interface{}) error {
	cmd := strings.ToUpper(commandName)
	switch {
	case cmd == "MULTI":
		c.multi = true
	case c.multi && cmd != "EXEC" && cmd != "DISCARD":
		c.queued = append(c.queued, append([]interface{}{cmd}, args...))
	default:
		reply, err := c.Do(cmd, args...)
		if err != nil {
			c.pending = append(c.pending, err)
		} else {
			c.pending = append(c.pending, reply)
		}
	}
	return nil
}

func (c *Conn) Receive() (interface{}, error) {
	if len(c.pending) == 0 {
		return nil, nil
	}
	reply := c.pending[0]
	c.pending = c.pending[1:]
	if err, ok := reply.(error); ok {
		return nil, err
	}
	return reply, nil
}

func (c *Conn) Do(commandName string, args ...interface{}) (interface{}, error) {
	cmd := strings.ToUpper(commandName)
	switch cmd {
	case "":
		return nil, nil
	case "MULTI":
		c.multi = true
		return "OK", nil
	case "DISCARD":
		c.multi = false
		c.queued = nil
		return "OK", nil
	case "EXEC":
		c.multi = false
		queued := c.queued
		c.queued = nil
		replies := make([]interface{}, 0, len(queued))
		for _, q := range queued {
			reply, err := c.store.exec(q[0].(string), q[1:])
			if err != nil {
				return nil, err
			}
			replies = append(replies, reply)
		}
		return replies, nil
	}
	if c.multi {
		c.queued = append(c.queued, append([]interface{}{cmd}, args...))
		return "QUEUED", nil
	}
	return c.store.exec(cmd, args)
}

func (s *Store) exec(cmd string, args []interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commands = append(s.Commands, cmd)
	if s.FailCommands[cmd] {
		return nil, fmt.Errorf("%s failed", cmd)
	}

	str := func(i int) string {
		switch v := args[i].(type) {
		case []byte:
			return string(v)
		default:
			return fmt.Sprint(v)
		}
	}

	switch cmd {
	case "GET":
		v, ok := s.strings[str(0)]
		if !ok {
			return nil, nil
		}
		return []byte(v), nil
	case "SET":
		key := str(0)
		for _, a := range args[2:] {
			if strings.EqualFold(fmt.Sprint(a), "NX") {
				if _, exists := s.strings[key]; exists {
					return nil, nil
				}
			}
		}
		s.strings[key] = str(1)
		return "OK", nil
	case "INCRBY":
		key := str(0)
		current, _ := strconv.ParseInt(s.strings[key], 10, 64)
		delta, err := strconv.ParseInt(str(1), 10, 64)
		if err != nil {
			return nil, err
		}
		current += delta
		s.strings[key] = strconv.FormatInt(current, 10)
		return current, nil
	case "DEL":
		var n int64
		for i := range args {
			key := str(i)
			if _, ok := s.strings[key]; ok {
				n++
			}
			if _, ok := s.lists[key]; ok {
				n++
			}
			if _, ok := s.sets[key]; ok {
				n++
			}
			delete(s.strings, key)
			delete(s.lists, key)
			delete(s.sets, key)
		}
		return n, nil
	case "EXISTS":
		key := str(0)
		_, a := s.strings[key]
		_, b := s.lists[key]
		_, c := s.sets[key]
		if a || b || c {
			return int64(1), nil
		}
		return int64(0), nil
	case "RPUSH":
		key := str(0)
		for i := 1; i < len(args); i++ {
			s.lists[key] = append(s.lists[key], str(i))
		}
		return int64(len(s.lists[key])), nil
	case "LRANGE":
		list := s.lists[str(0)]
		start, _ := strconv.Atoi(str(1))
		stop, _ := strconv.Atoi(str(2))
		if stop < 0 {
			stop = len(list) + stop
		}
		if start < 0 {
			start = 0
		}
		out := make([]interface{}, 0)
		for i := start; i <= stop && i < len(list); i++ {
			out = append(out, []byte(list[i]))
		}
		return out, nil
	case "LLEN":
		return int64(len(s.lists[str(0)])), nil
	case "SADD":
		key := str(0)
		if s.sets[key] == nil {
			s.sets[key] = make(map[string]struct{})
		}
		var n int64
		for i := 1; i < len(args); i++ {
			if _, ok := s.sets[key][str(i)]; !ok {
				s.sets[key][str(i)] = struct{}{}
				n++
			}
		}
		return n, nil
	case "SMEMBERS":
		members := make([]string, 0, len(s.sets[str(0)]))
		for m := range s.sets[str(0)] {
			members = append(members, m)
		}
		sort.Strings(members)
		out := make([]interface{}, len(members))
		for i, m := range members {
			out[i] = []byte(m)
		}
		return out, nil
	case "EXPIRE", "PEXPIRE":
		return int64(1), nil
	case "EVALSHA":
		return nil, redis.Error("NOSCRIPT No matching script. Please use EVAL.")
	case "EVAL":
		// release script: KEYS[1] is the lock name, ARGV[1] its token
		if len(args) >= 4 {
			key, token := str(2), str(3)
			if s.strings[key] == token {
				delete(s.strings, key)
				return int64(1), nil
			}
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported command %s", cmd)
}
