package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"

	"github.com/shreedev44/BetterBuddy-api/notifications/email"
	"github.com/shreedev44/BetterBuddy-api/storage/cache"
)

// otpCacheTTL bounds how long a processed OTP message id is remembered.
// It only needs to outlive the OTP itself plus queue redelivery.
const otpCacheTTL = time.Hour

// globalCount is a global variable used in the round robin algorithm to assign producers to each OTP message.
var globalCount int

// OTPProducerFactory is a struct for creating new OTPProducer instances
type OTPProducerFactory struct{}

// OTPConsumerFactory is a struct for creating new OTPConsumer instances
// It contains a Cache which is an interface to the cache service.
type OTPConsumerFactory struct {
	Cache cache.CacheInterface
}

// OTPProducer is a struct for managing the connection, channel, and queue of the AMQP message producer for OTP emails
type OTPProducer struct {
	conn    *amqp.Connection // the connection to the AMQP broker
	channel *amqp.Channel    // the channel used for publishing messages
	queue   *amqp.Queue      // the queue to which messages will be sent
}

// OTPConsumer is a struct for managing the connection, channel, queue and cache of the AMQP message consumer for OTP emails
type OTPConsumer struct {
	conn    *amqp.Connection     // the connection to the AMQP broker
	channel *amqp.Channel        // the channel used for consuming messages
	queue   *amqp.Queue          // the queue from which messages will be consumed
	cache   cache.CacheInterface // the cache for checking if a message has been processed
}

// OTPMessage is a struct for the content of queued OTP emails
type OTPMessage struct {
	Id   string `json:"id"`   // a unique id for the message, used for exactly-once delivery
	Code string `json:"code"` // the one-time password to send
	To   string `json:"to"`   // the recipient of the message
}

// CreateProducer is a method on OTPProducerFactory for creating a new instance of OTPProducer.
// It accepts three arguments:
// - conn: A pointer to an AMQP connection.
// - ch: A pointer to an AMQP channel.
// - queue: A pointer to an AMQP queue.
//
// This method performs the task of instantiating a new OTPProducer with the given connection, channel, and queue.
// The function returns a new instance of OTPProducer and an error. In the current implementation, the error is always nil.
func (f *OTPProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	// We always return nil for error for now. If in the future we needed to do some setup before returning the producer,
	// we could employ error checking there.
	return &OTPProducer{
		conn:    conn,
		channel: ch,
		queue:   queue,
	}, nil
}

// CreateConsumer is a method on OTPConsumerFactory for creating a new instance of OTPConsumer.
// It accepts three arguments:
// - conn: A pointer to an AMQP connection.
// - ch: A pointer to an AMQP channel.
// - queue: A pointer to an AMQP queue.
//
// This method performs the task of instantiating a new OTPConsumer with the given connection, channel, queue, and cache.
// The function returns a new instance of OTPConsumer and an error. In the current implementation, the error is always nil.
func (f *OTPConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	return &OTPConsumer{
		conn:    conn,
		channel: ch,
		queue:   queue,
		cache:   f.Cache,
	}, nil
}

// Publish is a method on OTPProducer for publishing a message to the AMQP queue.
// It accepts a single argument:
// - body: A byte array containing the message to be published.
//
// This method performs the task of publishing the given message to the queue.
// The function returns an error if there was a problem with publishing the message.
func (op *OTPProducer) Publish(body []byte) error {
	err := op.channel.Publish(
		"",            // exchange
		op.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}

	return nil
}

// Consume is a method on OTPConsumer for consuming messages from the AMQP queue.
// It accepts a single argument:
// - ctx: The context within which the method is being called.
//
// This method sets up a consumer on the queue and launches a goroutine that continuously reads from it.
// It handles each message by unmarshalling it, checking its processed state in the cache, and then either
// sending the OTP email or discarding the message. A message that was already processed is acked without
// resending, which keeps the delivery exactly-once from the user's point of view.
// The function returns a channel of deliveries from the queue and an error if there was a problem with setting up the consumer.
func (oc *OTPConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := oc.channel.Consume(
		oc.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	// Deploy the consumer worker to read messages from the queue.
	go func() {
		for {
			select {
			case d, ok := <-msgs:

				if !ok {
					return
				}

				message := &OTPMessage{}
				if err := json.Unmarshal(d.Body, message); err != nil {
					log.Printf("failed to unmarshal OTP message: %v", err)
					d.Nack(false, true) // requeue the message in case of transient error.
					continue
				}

				// Fetch processed state from cache
				processed, err := oc.cache.Get(ctx, "otp_"+message.Id)
				if err != nil {
					// Ignore cache misses, handle other errors
					if err.Error() != cache.ErrCacheMiss {
						log.Printf("error checking cache: %v", err)
						d.Nack(false, true) // requeue the message in case of transient error.
						continue
					}
				}

				if processed != nil {
					d.Ack(false)
					continue
				}

				// At this point, we know the message has not been processed, so we can send the email.
				if err := email.SendOTPEmail(message.To, message.Code); err != nil {
					log.Printf("failed to send OTP email: %v", err)
					d.Nack(false, true) // requeue the message in case of transient error.
				} else {
					d.Ack(false)
					if err := oc.cache.Set(ctx, "otp_"+message.Id, true, otpCacheTTL); err != nil {
						log.Printf("failed to set key in cache: %v", err)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

// BuildOTPQueue is a function that initializes a new Queue for handling OTP emails.
// It accepts four arguments:
// - rabbitMQURL: A string containing the URL of the RabbitMQ server.
// - numProducers: An integer indicating the number of producers to create.
// - numConsumers: An integer indicating the number of consumers to create.
// - otpCache: A CacheInterface instance used to remember processed messages.
//
// It creates the specified number of OTPProducer and OTPConsumer instances using factories and
// initializes a new Queue with the created producers and consumers.
// The function returns the initialized Queue.
func BuildOTPQueue(rabbitMQURL string, numProducers int, numConsumers int, otpCache cache.CacheInterface) *Queue {

	// Producer factories
	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &OTPProducerFactory{}
	}

	// Consumer factories
	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &OTPConsumerFactory{Cache: otpCache}
	}

	// Initialize the queue
	queue := InitQueue(rabbitMQURL, "otpQueue", prodFactories, consFactories)
	return queue
}

// InitOTPCache is a function that initializes the cache storage used to deduplicate OTP emails.
// It accepts one argument:
// - url: A string containing the URL of the cache server.
//
// The function returns a CacheInterface object that can be used to communicate with the cache in the backend.
func InitOTPCache(url string) cache.CacheInterface {
	c, err := cache.NewCache(url)
	if err != nil {
		log.Fatalf("Error connecting to cache: %v", err)
	}
	return c
}

// ProcessOTP is a function that takes an OTPMessage and a Queue of producers,
// serializes the message to JSON, and then publishes it onto the queue using one of the producers in a round-robin manner.
// It accepts two arguments:
// - otpMsg: A pointer to the OTPMessage to be processed.
// - otpQueue: A pointer to the Queue to which the message is to be published.
//
// The function returns an error if there was a problem with any step of the process.
func ProcessOTP(otpMsg *OTPMessage, otpQueue *Queue) error {

	body, err := json.Marshal(otpMsg)
	if err != nil {
		return errors.New("failed to marshal OTP message: " + err.Error())
	}

	producerCount := len(otpQueue.Producers)
	if producerCount == 0 {
		return errors.New("no producers available")
	}

	producer := otpQueue.Producers[globalCount%producerCount]
	globalCount++

	if err := producer.Publish(body); err != nil {
		return errors.New("failed to publish OTP message: " + err.Error())
	}

	return nil
}
