package renderer

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"github.com/ethpandaops/lhviewer/constants"
	"github.com/ethpandaops/lhviewer/internal/dom"
	"github.com/ethpandaops/lhviewer/internal/report/details"
)

// ErrUnknownDetailsType is returned when a details node has an unrecognised type.
var ErrUnknownDetailsType = errors.New("unknown details type")

// DetailsRenderer turns a details document into an HTML subtree.
type DetailsRenderer struct {
	dom *dom.DOM
}

// NewDetailsRenderer creates a details renderer.
func NewDetailsRenderer(d *dom.DOM) *DetailsRenderer {
	return &DetailsRenderer{dom: d}
}

// Render converts node, and everything nested beneath it, into elements.
func (r *DetailsRenderer) Render(node details.Node) (*html.Node, error) {
	switch n := node.(type) {
	case *details.Text:
		return r.renderText(n), nil
	case *details.Block:
		return r.renderBlock(n)
	case *details.List:
		return r.renderList(n)
	case *details.Cards:
		return r.renderCards(n)
	case *details.Unknown:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetailsType, n.Type)
	case nil:
		return nil, fmt.Errorf("%w: missing details node", ErrUnknownDetailsType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetailsType, node.Kind())
	}
}

func (r *DetailsRenderer) renderText(text *details.Text) *html.Node {
	el := r.dom.CreateElement("div", constants.ClassText, nil)
	dom.SetText(el, text.Text)

	return el
}

func (r *DetailsRenderer) renderBlock(block *details.Block) (*html.Node, error) {
	el := r.dom.CreateElement("div", constants.ClassBlock, nil)
	if err := r.renderItems(el, block.Items); err != nil {
		return nil, err
	}

	return el, nil
}

func (r *DetailsRenderer) renderList(list *details.List) (*html.Node, error) {
	el := r.dom.CreateElement("details", constants.ClassList, nil)

	if list.Header != nil {
		summary, err := r.renderSummary(constants.ClassListHeader, list.Header)
		if err != nil {
			return nil, err
		}
		el.AppendChild(summary)
	}

	items := r.dom.CreateElement("div", constants.ClassListItems, nil)
	if err := r.renderItems(items, list.Items); err != nil {
		return nil, err
	}
	el.AppendChild(items)

	return el, nil
}

func (r *DetailsRenderer) renderCards(cards *details.Cards) (*html.Node, error) {
	el := r.dom.CreateElement("details", constants.ClassDetails, nil)

	if cards.Header != nil {
		summary, err := r.renderSummary("", cards.Header)
		if err != nil {
			return nil, err
		}
		el.AppendChild(summary)
	}

	parent := r.dom.CreateElement("div", constants.ClassScorecards, nil)
	for _, item := range cards.Items {
		card := r.dom.CreateElement("div", constants.ClassScorecard, dom.Attrs{"title": item.Snippet})

		title := r.dom.CreateElement("div", constants.ClassScorecardTitle, nil)
		dom.SetText(title, item.Title)
		card.AppendChild(title)

		value := r.dom.CreateElement("div", constants.ClassScorecardValue, nil)
		dom.SetText(value, item.Value)
		card.AppendChild(value)

		if item.Target != nil {
			target := r.dom.CreateElement("div", constants.ClassScorecardTarget, nil)
			dom.SetText(target, "target: "+*item.Target)
			card.AppendChild(target)
		}

		parent.AppendChild(card)
	}
	el.AppendChild(parent)

	return el, nil
}

// renderSummary builds a summary line. Text headers become the summary text;
// any other header is rendered inside it.
func (r *DetailsRenderer) renderSummary(className string, header details.Node) (*html.Node, error) {
	summary := r.dom.CreateElement("summary", className, nil)

	if text, ok := header.(*details.Text); ok {
		dom.SetText(summary, text.Text)
		return summary, nil
	}

	child, err := r.Render(header)
	if err != nil {
		return nil, err
	}
	summary.AppendChild(child)

	return summary, nil
}

func (r *DetailsRenderer) renderItems(parent *html.Node, items []details.Node) error {
	for _, item := range items {
		child, err := r.Render(item)
		if err != nil {
			return err
		}
		parent.AppendChild(child)
	}

	return nil
}
