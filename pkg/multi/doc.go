// Package multi provides a pipeline of named database operations committed as a single transaction.
//
// A Multi is built by chaining builder calls (Create, Update, UpdateAll, Destroy, DestroyAll, Run and Error),
// each adding a uniquely named operation. Operations receive the outputs of the operations that ran before them,
// so a later operation can act on a record created by an earlier one.
//
// Commit opens one outer transaction on the backend and runs every operation, in order, in its own nested scope.
// If an operation raises a rollback-classified error, every effect is undone and the commit returns a failure
// Result carrying the outputs gathered so far together with the failing operation. Any other error also undoes
// every effect but is returned to the caller as is. An Error operation aborts the commit before any transaction
// is opened.
//
// Hooks implementing model.MultiOption observe a commit: the measure and drawer sub packages use them to time
// operations and to draw the chain of operations of a commit.
package multi
