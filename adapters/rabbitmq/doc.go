/*
Package rabbitmq provides a RabbitMQ sender for finalized STOMP messages.
It maps the message destination to an AMQP routing key, carries headers as an amqp.Table,
and includes an auto-reconnect publisher.
*/
package rabbitmq
