package service

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"tickmatch/domain/orderbook"
)

var (
	ErrEmptyCommand = errors.New("service: empty command")
	ErrBadCommand   = errors.New("service: bad command")
)

type CommandKind uint8

const (
	CmdAdd CommandKind = iota + 1
	CmdCancel
	CmdModify
	CmdBook
)

func (k CommandKind) String() string {
	switch k {
	case CmdAdd:
		return "add"
	case CmdCancel:
		return "cancel"
	case CmdModify:
		return "modify"
	case CmdBook:
		return "book"
	default:
		return "unknown"
	}
}

// Command is one parsed script line. Prices stay decimal until the
// exchange applies its scale.
type Command struct {
	Kind   CommandKind
	Symbol string
	Side   orderbook.Side
	ID     orderbook.OrderID
	Price  decimal.Decimal
	Qty    int64
	Depth  int

	HasPrice bool
	HasQty   bool
}

// ParseCommand parses one line of the command language:
//
//	add    <symbol> <buy|sell> <price> <qty>
//	cancel <symbol> <id>
//	modify <symbol> <id> [price=<price>] [qty=<qty>]
//	book   <symbol> [levels]
//
// Blank lines and lines starting with '#' yield ErrEmptyCommand.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, ErrEmptyCommand
	}
	f := strings.Fields(line)
	if len(f) < 2 {
		return Command{}, errors.Wrapf(ErrBadCommand, "%q: missing symbol", line)
	}

	cmd := Command{Symbol: f[1]}
	args := f[2:]
	var err error
	switch strings.ToLower(f[0]) {
	case "add":
		cmd.Kind = CmdAdd
		if len(args) != 3 {
			return Command{}, errors.Wrapf(ErrBadCommand, "%q: want add <symbol> <side> <price> <qty>", line)
		}
		if cmd.Side, err = parseSide(args[0]); err != nil {
			return Command{}, err
		}
		if cmd.Price, err = parsePrice(args[1]); err != nil {
			return Command{}, err
		}
		if cmd.Qty, err = parseQty(args[2]); err != nil {
			return Command{}, err
		}
		cmd.HasPrice, cmd.HasQty = true, true

	case "cancel":
		cmd.Kind = CmdCancel
		if len(args) != 1 {
			return Command{}, errors.Wrapf(ErrBadCommand, "%q: want cancel <symbol> <id>", line)
		}
		if cmd.ID, err = parseID(args[0]); err != nil {
			return Command{}, err
		}

	case "modify":
		cmd.Kind = CmdModify
		if len(args) < 1 || len(args) > 3 {
			return Command{}, errors.Wrapf(ErrBadCommand, "%q: want modify <symbol> <id> [price=] [qty=]", line)
		}
		if cmd.ID, err = parseID(args[0]); err != nil {
			return Command{}, err
		}
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			switch {
			case ok && k == "price" && !cmd.HasPrice:
				if cmd.Price, err = parsePrice(v); err != nil {
					return Command{}, err
				}
				cmd.HasPrice = true
			case ok && k == "qty" && !cmd.HasQty:
				if cmd.Qty, err = parseQty(v); err != nil {
					return Command{}, err
				}
				cmd.HasQty = true
			default:
				return Command{}, errors.Wrapf(ErrBadCommand, "%q: unexpected %q", line, kv)
			}
		}

	case "book":
		cmd.Kind = CmdBook
		switch len(args) {
		case 0:
		case 1:
			if cmd.Depth, err = strconv.Atoi(args[0]); err != nil || cmd.Depth < 0 {
				return Command{}, errors.Wrapf(ErrBadCommand, "%q: bad level count", line)
			}
		default:
			return Command{}, errors.Wrapf(ErrBadCommand, "%q: want book <symbol> [levels]", line)
		}

	default:
		return Command{}, errors.Wrapf(ErrBadCommand, "unknown verb %q", f[0])
	}
	return cmd, nil
}

func parseSide(s string) (orderbook.Side, error) {
	switch strings.ToLower(s) {
	case "buy", "bid", "b":
		return orderbook.Buy, nil
	case "sell", "ask", "s":
		return orderbook.Sell, nil
	}
	return 0, errors.Wrapf(ErrBadCommand, "unknown side %q", s)
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(ErrBadCommand, "price %q", s)
	}
	return d, nil
}

// parseQty accepts any integer; sign checks belong to the book.
func parseQty(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadCommand, "quantity %q", s)
	}
	return q, nil
}

func parseID(s string) (orderbook.OrderID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadCommand, "order id %q", s)
	}
	return orderbook.OrderID(id), nil
}
