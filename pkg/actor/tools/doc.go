// Package tools defines tool requests and the tools that execute them.
//
// A ToolRequest is an immutable, declarative description of one action and
// its target, independent of any live browser object. Requests are built by
// a planner against a page snapshot and may sit queued for a while before
// executing; they therefore reference their targets only through stable
// handles and snapshot node ids, never live pointers.
//
// A Tool is the per-invocation executor a request is turned into. Tools are
// created, validated, invoked, and destroyed within one controller turn.
// Each async tool operation takes a single-shot callback that is invoked
// exactly once, possibly on a later turn of the event loop.
//
// # Request variants
//
// Page-scoped requests (click, type, scroll, select, drag-and-release,
// script) target a node or viewport coordinate inside a tab's document and
// execute through the shared PageTool, which re-validates the target
// against the planning-time snapshot immediately before acting. Tab-scoped
// requests (navigate, history, attempt-login, tab management) target a
// whole tab or window. The wait request targets nothing.
package tools
