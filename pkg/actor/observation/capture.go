package observation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fatalapps/pageactor/pkg/actor/tabs"
)

// captureScript tags interactive and sectioning elements with node markers,
// stamps the document identifier on the root element, and returns the
// geometry of everything it tagged.
const captureScript = `(docID) => {
	document.documentElement.setAttribute('data-actor-document', docID);
	const selector = 'a, button, input, select, textarea, [role], [onclick], h1, h2, h3, form, img';
	const out = { viewport: { x: 0, y: 0, width: window.innerWidth, height: window.innerHeight }, nodes: [] };
	let next = 1;
	for (const el of document.querySelectorAll(selector)) {
		let id = el.getAttribute('data-actor-node');
		if (!id) {
			id = String(next++);
			el.setAttribute('data-actor-node', id);
		} else {
			next = Math.max(next, parseInt(id, 10) + 1);
		}
		const r = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		out.nodes.push({
			id: parseInt(id, 10),
			rect: { x: r.x, y: r.y, width: r.width, height: r.height },
			visible: r.width > 0 && r.height > 0 && style.visibility !== 'hidden' && style.display !== 'none',
			disabled: el.disabled === true || el.getAttribute('aria-disabled') === 'true',
		});
	}
	return JSON.stringify(out);
}`

// liveDocumentScript reads back the stamped document identifier, empty if
// the page was never captured or has navigated since.
const liveDocumentScript = `() => document.documentElement.getAttribute('data-actor-document') || ''`

type capturedNode struct {
	ID       int  `json:"id"`
	Rect     Rect `json:"rect"`
	Visible  bool `json:"visible"`
	Disabled bool `json:"disabled"`
}

type capturedPage struct {
	Viewport Rect           `json:"viewport"`
	Nodes    []capturedNode `json:"nodes"`
}

// Capture takes a snapshot of the tab's live page. The page is annotated
// in place so later actions can address captured nodes.
func Capture(tab *tabs.Tab) (*Snapshot, error) {
	page := tab.Page()
	if page == nil {
		return nil, fmt.Errorf("tab %d has no live page", tab.Handle())
	}

	docID := uuid.NewString()
	raw, err := page.Evaluate(captureScript, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}
	encoded, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected capture result type %T", raw)
	}

	var captured capturedPage
	if err := json.Unmarshal([]byte(encoded), &captured); err != nil {
		return nil, fmt.Errorf("failed to decode capture result: %w", err)
	}

	snapshot := NewSnapshot(docID, page.URL(), captured.Viewport)
	for _, n := range captured.Nodes {
		snapshot.AddNode(Node{
			ID:       NodeID(n.ID),
			Rect:     n.Rect,
			Visible:  n.Visible,
			Disabled: n.Disabled,
		})
	}

	// Tag names and text digests come from the serialized page rather than
	// another round of per-node evaluations.
	pageHTML, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	if err := snapshot.annotateFromHTML(pageHTML); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// LiveDocumentID reads the document identifier stamped on the tab's live
// page. Returns empty if the tab has no live page or the page carries no
// marker (for example after a navigation).
func LiveDocumentID(tab *tabs.Tab) (string, error) {
	page := tab.Page()
	if page == nil {
		return "", nil
	}
	raw, err := page.Evaluate(liveDocumentScript)
	if err != nil {
		return "", fmt.Errorf("failed to read document marker: %w", err)
	}
	id, _ := raw.(string)
	return id, nil
}

// NodeSelector returns the CSS selector addressing a captured node in the
// live page.
func NodeSelector(id NodeID) string {
	return fmt.Sprintf(`[%s="%d"]`, NodeAttr, int(id))
}

// LiveNodePresent reports whether the captured node's marker is still
// present in the tab's live page. Tabs without a live page report true so
// snapshot-only validation remains authoritative.
func LiveNodePresent(tab *tabs.Tab, id NodeID) (bool, error) {
	page := tab.Page()
	if page == nil {
		return true, nil
	}
	count, err := page.Locator(NodeSelector(id)).Count()
	if err != nil {
		return false, fmt.Errorf("failed to query node %d: %w", id, err)
	}
	return count > 0, nil
}
