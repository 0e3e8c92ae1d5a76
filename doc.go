/*

Package multisend dispatches a large list of transfers to a blockchain in
fixed-size batches. Each batch is signed and broadcast as a single
transaction, one batch at a time, and a failed batch is resolved by a
decision maker that can retry it, skip it or stop the whole run.

Look into this package for the dispatch engine, its state machine and the
capability interfaces (Signer, DecisionMaker, Notifier) it consumes. Chain
access lives in the client package and transfer list handling in the
transfer package.

*/
package multisend
