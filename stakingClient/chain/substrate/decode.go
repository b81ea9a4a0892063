package substrate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
	"unicode/utf8"

	"cosmossdk.io/math"
	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"

	"github.com/pushchain/easystake/stakingClient/chain"
	"github.com/pushchain/easystake/stakingClient/ss58"
)

const accountIDLen = ss58.PublicKeyLength

// Chain state is decoded field by field: runtimes append fields to these
// structs across upgrades and only the leading ones are read here.

type decoder struct {
	*scale.Decoder
	prefix uint16
}

func newDecoder(data []byte, prefix uint16) *decoder {
	return &decoder{Decoder: scale.NewDecoder(bytes.NewReader(data)), prefix: prefix}
}

func (d *decoder) bytesN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.bytesN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.bytesN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) u128() (math.Int, error) {
	b, err := d.bytesN(16)
	if err != nil {
		return math.Int{}, err
	}
	return u128FromLE(b), nil
}

func (d *decoder) compact() (math.Int, error) {
	v, err := d.DecodeUintCompact()
	if err != nil {
		return math.Int{}, err
	}
	return math.NewIntFromBigInt(v), nil
}

func (d *decoder) length() (int, error) {
	v, err := d.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() || v.Int64() > 1<<20 {
		return 0, fmt.Errorf("implausible sequence length %s", v)
	}
	return int(v.Int64()), nil
}

func (d *decoder) boolean() (bool, error) {
	b, err := d.ReadOneByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid bool byte %#x", b)
}

func (d *decoder) accountID() ([]byte, error) {
	return d.bytesN(accountIDLen)
}

func (d *decoder) address() (string, error) {
	id, err := d.accountID()
	if err != nil {
		return "", err
	}
	return ss58.Encode(id, d.prefix)
}

func (d *decoder) optionalAccountID() ([]byte, error) {
	some, err := d.boolean()
	if err != nil || !some {
		return nil, err
	}
	return d.accountID()
}

// data decodes pallet-identity Data: 0 none, 1..33 raw of length tag-1, 34..37 a 32-byte hash.
func (d *decoder) data() (string, error) {
	tag, err := d.ReadOneByte()
	if err != nil {
		return "", err
	}
	switch {
	case tag == 0:
		return "", nil
	case tag <= 33:
		raw, err := d.bytesN(int(tag) - 1)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(raw) {
			return fmt.Sprintf("0x%x", raw), nil
		}
		return string(raw), nil
	case tag <= 37:
		_, err := d.bytesN(32)
		return "", err
	}
	return "", fmt.Errorf("invalid identity data tag %d", tag)
}

func u128FromLE(b []byte) math.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return math.NewIntFromBigInt(new(big.Int).SetBytes(be))
}

// decodePrefs decodes ValidatorPrefs { commission: Compact<Perbill>, blocked: bool }.
func decodePrefs(raw []byte) (chain.ValidatorPrefs, error) {
	d := newDecoder(raw, 0)
	commission, err := d.DecodeUintCompact()
	if err != nil {
		return chain.ValidatorPrefs{}, fmt.Errorf("commission: %w", err)
	}
	if !commission.IsUint64() || commission.Uint64() > 1_000_000_000 {
		return chain.ValidatorPrefs{}, fmt.Errorf("commission %s exceeds one perbill", commission)
	}
	blocked, err := d.boolean()
	if err != nil {
		return chain.ValidatorPrefs{}, fmt.Errorf("blocked: %w", err)
	}
	return chain.ValidatorPrefs{Commission: uint32(commission.Uint64()), Blocked: blocked}, nil
}

// decodeExposure decodes Exposure { total, own: Compact<Balance>, others: Vec<{who, value}> }.
func decodeExposure(raw []byte, prefix uint16) (chain.Exposure, error) {
	d := newDecoder(raw, prefix)
	total, err := d.compact()
	if err != nil {
		return chain.Exposure{}, fmt.Errorf("total: %w", err)
	}
	own, err := d.compact()
	if err != nil {
		return chain.Exposure{}, fmt.Errorf("own: %w", err)
	}
	others, err := decodeIndividuals(d)
	if err != nil {
		return chain.Exposure{}, err
	}
	return chain.Exposure{Total: total, Own: own, Others: others}, nil
}

// decodeOverview decodes PagedExposureMetadata { total, own, nominator_count, page_count }.
func decodeOverview(raw []byte) (total, own math.Int, pages uint32, err error) {
	d := newDecoder(raw, 0)
	if total, err = d.compact(); err != nil {
		return
	}
	if own, err = d.compact(); err != nil {
		return
	}
	if _, err = d.u32(); err != nil {
		return
	}
	pages, err = d.u32()
	return
}

// decodeExposurePage decodes ExposurePage { page_total: Compact<Balance>, others }.
func decodeExposurePage(raw []byte, prefix uint16) ([]chain.IndividualExposure, error) {
	d := newDecoder(raw, prefix)
	if _, err := d.compact(); err != nil {
		return nil, fmt.Errorf("page_total: %w", err)
	}
	return decodeIndividuals(d)
}

func decodeIndividuals(d *decoder) ([]chain.IndividualExposure, error) {
	n, err := d.length()
	if err != nil {
		return nil, fmt.Errorf("others: %w", err)
	}
	others := make([]chain.IndividualExposure, 0, n)
	for i := 0; i < n; i++ {
		who, err := d.address()
		if err != nil {
			return nil, fmt.Errorf("others[%d].who: %w", i, err)
		}
		value, err := d.compact()
		if err != nil {
			return nil, fmt.Errorf("others[%d].value: %w", i, err)
		}
		others = append(others, chain.IndividualExposure{Who: who, Value: value})
	}
	return others, nil
}

// decodeNominations decodes Nominations { targets: Vec<AccountId>, .. }.
func decodeNominations(raw []byte, prefix uint16) ([]string, error) {
	d := newDecoder(raw, prefix)
	n, err := d.length()
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	targets := make([]string, 0, n)
	for i := 0; i < n; i++ {
		addr, err := d.address()
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		targets = append(targets, addr)
	}
	return targets, nil
}

// decodeAccountIDs decodes Vec<AccountId>.
func decodeAccountIDs(raw []byte, prefix uint16) ([]string, error) {
	return decodeNominations(raw, prefix)
}

// decodeLedger decodes StakingLedger { stash, total, active, unlocking: Vec<{value, era}>, .. }.
func decodeLedger(raw []byte, prefix uint16) (*chain.Ledger, error) {
	d := newDecoder(raw, prefix)
	stash, err := d.address()
	if err != nil {
		return nil, fmt.Errorf("stash: %w", err)
	}
	total, err := d.compact()
	if err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	active, err := d.compact()
	if err != nil {
		return nil, fmt.Errorf("active: %w", err)
	}
	n, err := d.length()
	if err != nil {
		return nil, fmt.Errorf("unlocking: %w", err)
	}
	ledger := &chain.Ledger{Stash: stash, Total: total, Active: active, Unlocking: make([]chain.UnlockChunk, 0, n)}
	for i := 0; i < n; i++ {
		value, err := d.compact()
		if err != nil {
			return nil, fmt.Errorf("unlocking[%d].value: %w", i, err)
		}
		era, err := d.DecodeUintCompact()
		if err != nil {
			return nil, fmt.Errorf("unlocking[%d].era: %w", i, err)
		}
		ledger.Unlocking = append(ledger.Unlocking, chain.UnlockChunk{Value: value, Era: uint32(era.Uint64())})
	}
	return ledger, nil
}

// decodeRegistration reads the identity info out of Registration { judgements, deposit, info }.
func decodeRegistration(raw []byte, accountID string) (chain.Identity, error) {
	id := chain.Identity{AccountID: accountID}
	d := newDecoder(raw, 0)

	n, err := d.length()
	if err != nil {
		return id, fmt.Errorf("judgements: %w", err)
	}
	for i := 0; i < n; i++ {
		if _, err := d.u32(); err != nil {
			return id, fmt.Errorf("judgements[%d].registrar: %w", i, err)
		}
		variant, err := d.ReadOneByte()
		if err != nil {
			return id, fmt.Errorf("judgements[%d]: %w", i, err)
		}
		// FeePaid carries the fee
		if variant == 1 {
			if _, err := d.u128(); err != nil {
				return id, fmt.Errorf("judgements[%d].fee: %w", i, err)
			}
		}
	}
	if _, err := d.u128(); err != nil {
		return id, fmt.Errorf("deposit: %w", err)
	}

	n, err = d.length()
	if err != nil {
		return id, fmt.Errorf("additional: %w", err)
	}
	for i := 0; i < 2*n; i++ {
		if _, err := d.data(); err != nil {
			return id, fmt.Errorf("additional[%d]: %w", i/2, err)
		}
	}

	for _, field := range []*string{&id.Display, &id.Legal, &id.Web, &id.Riot, &id.Email} {
		if *field, err = d.data(); err != nil {
			return id, err
		}
	}
	if pgp, err := d.boolean(); err != nil {
		return id, fmt.Errorf("pgp_fingerprint: %w", err)
	} else if pgp {
		if _, err := d.bytesN(20); err != nil {
			return id, err
		}
	}
	if _, err := d.data(); err != nil {
		return id, fmt.Errorf("image: %w", err)
	}
	if id.Twitter, err = d.data(); err != nil {
		return id, fmt.Errorf("twitter: %w", err)
	}
	return id, nil
}

// listNode is a bags-list node: { id, prev, next, bag_upper, score }.
type listNode struct {
	ID       []byte
	Prev     []byte
	Next     []byte
	BagUpper uint64
	Score    uint64
}

func decodeListNode(raw []byte) (listNode, error) {
	d := newDecoder(raw, 0)
	var (
		n   listNode
		err error
	)
	if n.ID, err = d.accountID(); err != nil {
		return n, fmt.Errorf("id: %w", err)
	}
	if n.Prev, err = d.optionalAccountID(); err != nil {
		return n, fmt.Errorf("prev: %w", err)
	}
	if n.Next, err = d.optionalAccountID(); err != nil {
		return n, fmt.Errorf("next: %w", err)
	}
	if n.BagUpper, err = d.u64(); err != nil {
		return n, fmt.Errorf("bag_upper: %w", err)
	}
	if n.Score, err = d.u64(); err != nil {
		return n, fmt.Errorf("score: %w", err)
	}
	return n, nil
}

// decodeBagHead returns the head of Bag { head: Option<AccountId>, tail }.
func decodeBagHead(raw []byte) ([]byte, error) {
	return newDecoder(raw, 0).optionalAccountID()
}

// decodeThresholds decodes Vec<u64>.
func decodeThresholds(raw []byte) ([]uint64, error) {
	d := newDecoder(raw, 0)
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.u64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// bagUpperFor returns the upper bound of the bag a score belongs to: the first
// threshold not below it, or the max u64 bag past the last threshold.
func bagUpperFor(thresholds []uint64, score uint64) uint64 {
	i := sort.Search(len(thresholds), func(i int) bool { return thresholds[i] >= score })
	if i == len(thresholds) {
		return ^uint64(0)
	}
	return thresholds[i]
}

// findLighter walks a bag from head until self and returns the first node ahead
// of self with a lower score.
func findLighter(head []byte, self listNode, lookup func(id []byte) (listNode, bool)) ([]byte, bool) {
	seen := 0
	for cur := head; cur != nil && !bytes.Equal(cur, self.ID); seen++ {
		// bags are bounded by the voter count; stop on a cycle
		if seen > 1<<16 {
			return nil, false
		}
		node, ok := lookup(cur)
		if !ok {
			return nil, false
		}
		if node.Score < self.Score {
			return node.ID, true
		}
		cur = node.Next
	}
	return nil, false
}
