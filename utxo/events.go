// events.go is the UTXO state-change notification bus: external
// observers subscribe to state transitions keyed by address. The bus is
// a mangos PUB/SUB socket pair over an in-process transport, leaning on
// nanomsg's native topic-prefix matching for the address filter rather
// than a bespoke broadcast channel type.
package utxo

import (
	"fmt"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	_ "go.nanomsg.org/mangos/v3/transport/inproc"

	"github.com/zenithcoin/zenithd/chaintypes"
	"github.com/zenithcoin/zenithd/ids"
)

const busURL = "inproc://zenithd/utxo-events"

// Event is published whenever a tracked outpoint changes state.
type Event struct {
	OutPoint chaintypes.OutPoint
	Address  string
	Kind     chaintypes.StateKind
	TxID     ids.ID
}

// Bus publishes Events keyed by address, and lets callers subscribe to a
// single address's topic.
type Bus struct {
	pubSock mangos.Socket
}

// NewBus opens the publishing end of the bus. Close must be called on
// shutdown to release the inproc listener.
func NewBus() (*Bus, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Listen(busURL); err != nil {
		sock.Close()
		return nil, fmt.Errorf("utxo: bus listen: %w", err)
	}
	return &Bus{pubSock: sock}, nil
}

// Publish encodes and sends ev under the topic ev.Address, so subscribers
// filtering on that address's bytes receive it.
func (b *Bus) Publish(ev Event) error {
	return b.pubSock.Send(encodeEvent(ev))
}

func (b *Bus) Close() error { return b.pubSock.Close() }

// Subscriber is a single address-scoped reader of the bus.
type Subscriber struct {
	sock mangos.Socket
	ch   chan Event
	done chan struct{}
}

// Subscribe connects to the bus and returns a Subscriber whose Events
// channel carries the Events for the given address. Cancel via Close.
func Subscribe(address string) (*Subscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.Dial(busURL); err != nil {
		sock.Close()
		return nil, fmt.Errorf("utxo: subscribe dial: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSubscribe, []byte(address)); err != nil {
		sock.Close()
		return nil, err
	}

	s := &Subscriber{sock: sock, ch: make(chan Event, 64), done: make(chan struct{})}
	go s.loop()
	return s, nil
}

func (s *Subscriber) loop() {
	defer close(s.ch)
	for {
		msg, err := s.sock.Recv()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		ev, ok := decodeEvent(msg)
		if !ok {
			continue
		}
		select {
		case s.ch <- ev:
		case <-s.done:
			return
		}
	}
}

// Events returns the channel of matching Events for this subscription.
func (s *Subscriber) Events() <-chan Event { return s.ch }

func (s *Subscriber) Close() error {
	close(s.done)
	return s.sock.Close()
}

// encodeEvent writes address as a raw, NUL-terminated topic prefix (so
// SUB-side subscriptions matching on address bytes work directly)
// followed by a fixed-width record: outpoint txid (32), outpoint vout
// (4, big-endian), kind (1), event txid (32).
func encodeEvent(ev Event) []byte {
	b := make([]byte, 0, len(ev.Address)+1+32+4+1+32)
	b = append(b, []byte(ev.Address)...)
	b = append(b, 0)
	b = append(b, ev.OutPoint.TxID[:]...)
	b = append(b, byte(ev.OutPoint.Vout>>24), byte(ev.OutPoint.Vout>>16), byte(ev.OutPoint.Vout>>8), byte(ev.OutPoint.Vout))
	b = append(b, byte(ev.Kind))
	b = append(b, ev.TxID[:]...)
	return b
}

func decodeEvent(b []byte) (Event, bool) {
	nul := -1
	for i, c := range b {
		if c == 0 {
			nul = i
			break
		}
	}
	if nul < 0 || len(b)-nul-1 != 32+4+1+32 {
		return Event{}, false
	}
	address := string(b[:nul])
	rest := b[nul+1:]

	var ev Event
	ev.Address = address
	copy(ev.OutPoint.TxID[:], rest[:32])
	rest = rest[32:]
	ev.OutPoint.Vout = uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
	rest = rest[4:]
	ev.Kind = chaintypes.StateKind(rest[0])
	rest = rest[1:]
	copy(ev.TxID[:], rest[:32])
	return ev, true
}
