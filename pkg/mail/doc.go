// Package mail provides the outbound email transports used by the delivery worker.
//
// SMTPSender talks to a real relay through gomail; LogSender only writes the message to the log
// and is meant for local development. Both report failures as *TransportError.
package mail
