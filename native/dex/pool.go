package dex

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Pool is one directional trading pair. Reserves carry 18 implied decimal
// places; KLast is the constant product recorded after the last mutation.
type Pool struct {
	TokenA   string
	TokenB   string
	ReserveA *uint256.Int
	ReserveB *uint256.Int
	KLast    *uint256.Int

	totalLP    *uint256.Int
	lpBalances map[string]*uint256.Int
}

// PairKey builds the directional pool key for a token pair.
func PairKey(tokenA, tokenB string) string {
	return tokenA + "_" + tokenB
}

func normalizeToken(token string) (string, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

func newPool(tokenA, tokenB string) *Pool {
	return &Pool{
		TokenA:     tokenA,
		TokenB:     tokenB,
		ReserveA:   uint256.NewInt(0),
		ReserveB:   uint256.NewInt(0),
		KLast:      uint256.NewInt(0),
		totalLP:    uint256.NewInt(0),
		lpBalances: make(map[string]*uint256.Int),
	}
}

// updateKLast recomputes the stored constant product from current reserves.
func (p *Pool) updateKLast() {
	k := new(uint256.Int)
	k.Mul(p.ReserveA, p.ReserveB)
	p.KLast = k
}

// LPBalanceOf returns the provider's liquidity units.
func (p *Pool) LPBalanceOf(provider string) *uint256.Int {
	if balance, ok := p.lpBalances[provider]; ok {
		return new(uint256.Int).Set(balance)
	}
	return uint256.NewInt(0)
}

// TotalLP returns the outstanding liquidity units for the pool.
func (p *Pool) TotalLP() *uint256.Int {
	return new(uint256.Int).Set(p.totalLP)
}

// snapshot returns a deep copy so callers never alias live reserve state.
func (p *Pool) snapshot() Pool {
	clone := Pool{
		TokenA:     p.TokenA,
		TokenB:     p.TokenB,
		ReserveA:   new(uint256.Int).Set(p.ReserveA),
		ReserveB:   new(uint256.Int).Set(p.ReserveB),
		KLast:      new(uint256.Int).Set(p.KLast),
		totalLP:    new(uint256.Int).Set(p.totalLP),
		lpBalances: make(map[string]*uint256.Int, len(p.lpBalances)),
	}
	for provider, balance := range p.lpBalances {
		clone.lpBalances[provider] = new(uint256.Int).Set(balance)
	}
	return clone
}

func (p *Pool) String() string {
	return fmt.Sprintf("%s: %s / %s", PairKey(p.TokenA, p.TokenB), p.ReserveA.Dec(), p.ReserveB.Dec())
}
