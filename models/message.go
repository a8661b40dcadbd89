package models

import "strings"

type SegmentKind string

const (
	SegmentText         SegmentKind = "text"
	SegmentPaymentLink  SegmentKind = "payment_link"
	SegmentCustomerLink SegmentKind = "customer_link"
)

// Segment is one run of a status message: plain text or a dashboard link.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
	URL  string      `json:"url,omitempty"`
}

// IsLink reports whether the segment points to the dashboard.
func (s Segment) IsLink() bool {
	return s.Kind == SegmentPaymentLink || s.Kind == SegmentCustomerLink
}

// Message is a single line of the checkout status log.
type Message struct {
	Segments []Segment `json:"segments"`
}

// Text returns the message without any link markup.
func (m Message) Text() string {
	var b strings.Builder
	for _, s := range m.Segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Links returns the link segments in order.
func (m Message) Links() []Segment {
	var links []Segment
	for _, s := range m.Segments {
		if s.IsLink() {
			links = append(links, s)
		}
	}
	return links
}
