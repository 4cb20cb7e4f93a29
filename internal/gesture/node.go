/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gesture turns wheel, pinch, pointer and keyboard input into viewport
// transitions. Hosts deliver events to the Controller before anything else
// sees them and forward an event to the drawing engine only when the
// controller did not stop its propagation.
package gesture

import "strings"

// Node is the minimal element tree the controller needs for ancestry checks.
type Node struct {
	ID       string
	Classes  []string
	Editable bool
	Parent   *Node
}

// NewNode returns a child of parent carrying the given classes.
func NewNode(parent *Node, classes ...string) *Node {
	return &Node{Parent: parent, Classes: classes}
}

// HasClass reports whether n carries class c.
func (n *Node) HasClass(c string) bool {
	if n == nil {
		return false
	}
	for _, have := range n.Classes {
		if have == c {
			return true
		}
	}
	return false
}

// Closest returns the nearest inclusive ancestor matching selector, which is
// either ".class" or "#id". Comma separated alternatives are accepted.
func (n *Node) Closest(selector string) *Node {
	sels := strings.Split(selector, ",")
	for cur := n; cur != nil; cur = cur.Parent {
		for _, s := range sels {
			if cur.matches(strings.TrimSpace(s)) {
				return cur
			}
		}
	}
	return nil
}

func (n *Node) matches(sel string) bool {
	switch {
	case strings.HasPrefix(sel, "."):
		return n.HasClass(sel[1:])
	case strings.HasPrefix(sel, "#"):
		return n.ID == sel[1:]
	}
	return false
}

// IsEditable reports whether n or an ancestor accepts text input.
func (n *Node) IsEditable() bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Editable {
			return true
		}
	}
	return false
}
