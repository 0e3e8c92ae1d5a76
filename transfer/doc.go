/*
Package transfer turns a list of recipients into dispatch messages.

Transfers are read from a CSV file without a header, one transfer per row:

	cosmos1qyqszqgpqyqszqgpqyqszqgpqyqszqgpjnp7du,12.5
	cosmos1qgpqyqszqgpqyqszqgpqyqszqgpqyqszrh8mx2,0.000001

The amount is given in display units of the asset and converted to raw
units with the asset exponent. Each transfer keeps the number of the row
it was read from as its ID, which is also the ID of the message created
for it. This allows to map failed messages back to the rows without
decoding them.
*/
package transfer
