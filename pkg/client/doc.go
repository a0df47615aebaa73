/*
Package client is a small Go client for the odin HTTP API, used by the CLI.

	c, err := client.NewClient("127.0.0.1:8080")
	if err != nil {
		return err
	}
	st, err := c.PowerStatus()

Requests go through fiber's HTTP client. Non-2xx responses are returned as
*APIError carrying the status code and the server's error message.
*/
package client
