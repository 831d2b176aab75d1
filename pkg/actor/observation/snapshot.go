package observation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// NodeID identifies an element within one captured snapshot. IDs are only
// meaningful relative to the snapshot (and the in-page markers written when
// it was captured); they are not stable across captures.
type NodeID int

// NodeAttr is the attribute written onto captured elements so later actions
// can address them in the live page.
const NodeAttr = "data-actor-node"

// DocumentAttr is the attribute carrying the snapshot's document identifier
// on the page's root element.
const DocumentAttr = "data-actor-document"

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point (x, y) lies inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Area returns the rect's area.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Node is one captured element.
type Node struct {
	ID       NodeID
	Tag      string
	Text     string
	Rect     Rect
	Visible  bool
	Disabled bool
}

// Snapshot is the annotated page content captured at planning time: a
// document identifier, the page URL, and the node table.
type Snapshot struct {
	DocumentID string
	URL        string
	Viewport   Rect

	nodes map[NodeID]*Node
}

// NewSnapshot creates an empty snapshot. Tests and the capture path add
// nodes with AddNode.
func NewSnapshot(documentID, url string, viewport Rect) *Snapshot {
	return &Snapshot{
		DocumentID: documentID,
		URL:        url,
		Viewport:   viewport,
		nodes:      make(map[NodeID]*Node),
	}
}

// AddNode records an element in the snapshot.
func (s *Snapshot) AddNode(n Node) {
	s.nodes[n.ID] = &n
}

// RemoveNode deletes an element from the snapshot. Used by tests to model
// a page that changed after capture.
func (s *Snapshot) RemoveNode(id NodeID) {
	delete(s.nodes, id)
}

// Node looks up an element by id.
func (s *Snapshot) Node(id NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// NodeCount returns the number of captured elements.
func (s *Snapshot) NodeCount() int {
	return len(s.nodes)
}

// NodeAt hit-tests the captured geometry, returning the smallest visible
// element containing the point.
func (s *Snapshot) NodeAt(x, y float64) (*Node, bool) {
	var best *Node
	for _, n := range s.nodes {
		if !n.Visible || !n.Rect.Contains(x, y) {
			continue
		}
		if best == nil || n.Rect.Area() < best.Rect.Area() {
			best = n
		}
	}
	return best, best != nil
}

// InViewport reports whether the point lies inside the captured viewport.
func (s *Snapshot) InViewport(x, y float64) bool {
	return s.Viewport.Contains(x, y)
}

// annotateFromHTML fills node tags and text digests by parsing the
// serialized page and matching the node markers written at capture time.
func (s *Snapshot) annotateFromHTML(pageHTML string) error {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return fmt.Errorf("failed to parse captured page: %w", err)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key != NodeAttr {
					continue
				}
				id, err := strconv.Atoi(attr.Val)
				if err != nil {
					continue
				}
				if node, ok := s.nodes[NodeID(id)]; ok {
					node.Tag = n.Data
					node.Text = textDigest(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nil
}

// textDigest extracts a short text summary of the element's contents.
func textDigest(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if b.Len() > 120 {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	digest := strings.TrimSpace(b.String())
	if len(digest) > 120 {
		digest = digest[:120]
	}
	return digest
}

// DebugString renders a compact listing of the snapshot for journals.
func (s *Snapshot) DebugString() string {
	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var b strings.Builder
	fmt.Fprintf(&b, "doc=%s url=%s nodes=%d", s.DocumentID, s.URL, len(ids))
	return b.String()
}
