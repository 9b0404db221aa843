// Package compiler lowers a whole program to assembly.
//
// Compilation runs in three passes:
//   - specialize: every declared libfunc is specialized against the
//     registry, in parallel.
//   - compile: statements are walked from each function entry, tracking
//     where every live variable is stored. Each invocation is handed to
//     package invocations and its branch outputs flow to the branch
//     targets. States reaching the same statement must agree.
//   - relocate: the per-statement instruction lists are concatenated and
//     jumps leaving a statement are patched with the final offsets.
//
// Program errors are reported as diagnostics; compiler defects panic.
package compiler
