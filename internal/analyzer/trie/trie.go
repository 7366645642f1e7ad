// Package trie provides the byte-keyed prefix tree used for Chinese word
// segmentation. Nodes live in a single arena and refer to their children by
// index, which keeps a large dictionary in a handful of allocations.
package trie

// root is always node 0.
const root = 0

type node struct {
	keys []byte  // sorted edge labels
	kids []int32 // arena index of the child for keys[i]
	freq int     // > 0 marks the end of a word
}

// Trie is safe for concurrent readers once no more Inserts happen.
type Trie struct {
	nodes []node
	words int
}

func New() *Trie {
	return &Trie{nodes: make([]node, 1, 1024)}
}

// Insert adds word with the given frequency. Frequencies below 1 are stored
// as 1. Inserting an existing word overwrites its frequency without
// allocating nodes. An empty word is ignored.
func (t *Trie) Insert(word string, freq int) {
	if word == "" {
		return
	}
	if freq < 1 {
		freq = 1
	}
	cur := int32(root)
	for i := 0; i < len(word); i++ {
		cur = t.child(cur, word[i], true)
	}
	n := &t.nodes[cur]
	if n.freq == 0 {
		t.words++
	}
	n.freq = freq
}

// child returns the index of cur's child on edge b, creating it when create
// is set. It returns -1 when the edge is absent and create is false.
func (t *Trie) child(cur int32, b byte, create bool) int32 {
	n := &t.nodes[cur]
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if n.keys[mid] < b {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.keys) && n.keys[lo] == b {
		return n.kids[lo]
	}
	if !create {
		return -1
	}
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{})
	n = &t.nodes[cur] // append may have moved the arena
	n.keys = append(n.keys, 0)
	n.kids = append(n.kids, 0)
	copy(n.keys[lo+1:], n.keys[lo:])
	copy(n.kids[lo+1:], n.kids[lo:])
	n.keys[lo] = b
	n.kids[lo] = idx
	return idx
}

// LongestMatch walks buf from off and returns the byte length and frequency
// of the longest dictionary word that starts there.
func (t *Trie) LongestMatch(buf []byte, off int) (n int, freq int, ok bool) {
	if t == nil || off < 0 || off >= len(buf) {
		return 0, 0, false
	}
	cur := int32(root)
	for i := off; i < len(buf); i++ {
		cur = t.child(cur, buf[i], false)
		if cur < 0 {
			break
		}
		if f := t.nodes[cur].freq; f > 0 {
			n, freq, ok = i-off+1, f, true
		}
	}
	return n, freq, ok
}

// Freq returns the stored frequency of word, 0 when it is not a word.
func (t *Trie) Freq(word string) int {
	if t == nil || word == "" {
		return 0
	}
	cur := int32(root)
	for i := 0; i < len(word); i++ {
		if cur = t.child(cur, word[i], false); cur < 0 {
			return 0
		}
	}
	return t.nodes[cur].freq
}

// Walk calls fn for every word in byte order until fn returns false. It uses
// an explicit stack, so deep dictionaries cannot exhaust the goroutine stack.
func (t *Trie) Walk(fn func(word string, freq int) bool) {
	if t == nil {
		return
	}
	type frame struct {
		idx   int32
		depth int
		label byte
	}
	var prefix []byte
	stack := []frame{{idx: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[f.idx]
		if f.depth > 0 {
			prefix = append(prefix[:f.depth-1], f.label)
			if n.freq > 0 && !fn(string(prefix), n.freq) {
				return
			}
		}
		for i := len(n.keys) - 1; i >= 0; i-- {
			stack = append(stack, frame{idx: n.kids[i], depth: f.depth + 1, label: n.keys[i]})
		}
	}
}

// Len returns the number of words stored.
func (t *Trie) Len() int {
	if t == nil {
		return 0
	}
	return t.words
}

// Nodes returns the arena size, root included.
func (t *Trie) Nodes() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}
