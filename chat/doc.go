// Package chat adapts the execution engine to chat front ends.
//
// It pulls source out of fenced code blocks, parses prefix commands such as
// "!compile python ```print(1)```" and renders execution results as replies
// with a title, a status color and fenced output sections.
package chat
