// Package diag collects user-facing compiler diagnostics.
//
// A diagnostic names a code, a severity and the program location it is about:
// the input file and, when known, the statement index and its source line.
// Phases report through a Reporter; the CLI renders the collected Bag.
//
// Codes are grouped by range:
//
//	1000-1999  IO   reading and decoding input files
//	2000-2999  PRG  program structure
//	3000-3999  SPC  type and libfunc specialization
//	4000-4999  INV  invocation compilation
//	5000-5999  REF  reference tracking across statements
//	6000-6999  ART  compiled artifacts
package diag
