package types

// Token is a vocabulary index.
type Token int64
type Tokens []Token

const (
	TokenSize   = 2
	TokenSize32 = 4
)
