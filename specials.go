package llama_bpe

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mohdsm81/llama_bpe/types"
)

// Nodes with at most this many children keep them in a slice, which is
// faster to scan than a map lookup.
const runeNodeArrMax = 10

// RuneNode is a trie over the runes of the special tokens.
type RuneNode struct {
	rune      rune               // The rune this node represents.
	terminal  bool               // A special token ends at this node.
	token     types.Token        // Id of that special token.
	childs    map[rune]*RuneNode // The child nodes.
	childsArr []*RuneNode        // The child nodes in insertion order, while few.
}

func newRuneNode(r rune) *RuneNode {
	return &RuneNode{
		rune:      r,
		childs:    make(map[rune]*RuneNode),
		childsArr: make([]*RuneNode, 0),
	}
}

func (node *RuneNode) child(r rune) *RuneNode {
	if node.childsArr != nil {
		for _, child := range node.childsArr {
			if child.rune == r {
				return child
			}
		}
		return nil
	}
	return node.childs[r]
}

func (node *RuneNode) insert(special string, token types.Token) {
	for _, r := range special {
		next, ok := node.childs[r]
		if !ok {
			next = newRuneNode(r)
			node.childs[r] = next
			if node.childsArr != nil {
				if len(node.childs) > runeNodeArrMax {
					node.childsArr = nil
				} else {
					node.childsArr = append(node.childsArr, next)
				}
			}
		}
		node = next
	}
	if !node.terminal {
		node.terminal = true
		node.token = token
	}
}

// longestMatch returns the byte length and id of the longest special token
// that is a prefix of text, or 0 if none is.
func (node *RuneNode) longestMatch(text string) (int, types.Token) {
	matched, token := 0, types.Token(0)
	for idx := 0; idx < len(text); {
		r, size := utf8.DecodeRuneInString(text[idx:])
		node = node.child(r)
		if node == nil {
			break
		}
		idx += size
		if node.terminal {
			matched = idx
			token = node.token
		}
	}
	return matched, token
}

// Represent the tree as a string by traversing the tree, and using tree
// characters to represent the tree structure.
func (node *RuneNode) string(level int) string {
	if node == nil {
		return ""
	}
	var s string
	if node.rune != 0 {
		s = string(node.rune)
	}
	runes := make([]rune, 0, len(node.childs))
	for r := range node.childs {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	if len(runes) == 1 && !node.terminal {
		return s + node.childs[runes[0]].string(level)
	}
	if len(runes) == 0 {
		return s + "\n"
	}
	level += 1
	s += "\n"
	for idx, r := range runes {
		childPrefix := strings.Repeat("| ", level-1)
		// If we're the last child, then we prepend with a tree terminator.
		if idx == len(runes)-1 {
			childPrefix += "└─"
		} else {
			childPrefix += "├─"
		}
		s += childPrefix + node.childs[r].string(level)
	}
	return s
}

func (node *RuneNode) String() string {
	return node.string(0)
}

// fragment is a span of input text. Special spans already carry their id.
type fragment struct {
	text    string
	special bool
	token   types.Token
}

// splitSpecials cuts text around every special token, preferring the
// longest match at each position.
func (node *RuneNode) splitSpecials(text string) []fragment {
	if node == nil || len(node.childs) == 0 {
		return []fragment{{text: text}}
	}
	fragments := make([]fragment, 0, 1)
	start := 0
	for idx := 0; idx < len(text); {
		matched, token := node.longestMatch(text[idx:])
		if matched == 0 {
			_, size := utf8.DecodeRuneInString(text[idx:])
			idx += size
			continue
		}
		if idx > start {
			fragments = append(fragments, fragment{text: text[start:idx]})
		}
		fragments = append(fragments, fragment{
			text:    text[idx : idx+matched],
			special: true,
			token:   token,
		})
		idx += matched
		start = idx
	}
	if start < len(text) {
		fragments = append(fragments, fragment{text: text[start:]})
	}
	return fragments
}

// createRuneTree builds the trie for the specials registered in vocab.
// Specials missing from the vocabulary are returned separately.
func createRuneTree(vocab *Vocabulary, specials []string) (*RuneNode,
	[]string) {
	root := newRuneNode(0)
	missing := make([]string, 0)
	for _, special := range specials {
		if special == "" {
			continue
		}
		token, ok := vocab.lookupString(special)
		if !ok {
			missing = append(missing, special)
			continue
		}
		root.insert(special, token)
	}
	return root, missing
}
