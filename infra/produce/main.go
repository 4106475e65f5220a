package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	IndexService *IndexProduceService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	indexService := InitIndexProduceService(channel)
	if indexService == nil {
		panic("Failed to initialize Index produce service")
	}

	produceInstance = &Produce{
		IndexService: indexService,
	}

	return produceInstance
}

func GetProduce() *Produce {
	if produceInstance == nil {
		panic("Produce not initialized. Call InitProduce() first.")
	}
	return produceInstance
}
