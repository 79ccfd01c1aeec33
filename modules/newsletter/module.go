package newsletter

import (
	"github.com/iota-uz/newsletter/modules/newsletter/infrastructure/persistence"
	"github.com/iota-uz/newsletter/modules/newsletter/presentation/controllers"
	"github.com/iota-uz/newsletter/modules/newsletter/services"
	"github.com/iota-uz/newsletter/pkg/application"
	"github.com/iota-uz/newsletter/pkg/configuration"
	"github.com/iota-uz/newsletter/pkg/delivery"
	"github.com/iota-uz/newsletter/pkg/idempotency"
	"github.com/iota-uz/newsletter/pkg/mail"
)

type ModuleOptions struct {
	// Configuration defaults to configuration.Use().
	Configuration *configuration.Configuration
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := m.options.Configuration
	if conf == nil {
		conf = configuration.Use()
	}

	app.Migrations().RegisterSchema(persistence.Schema())

	queue, err := delivery.NewQueue(app.DB(), delivery.DefaultQueueTable, delivery.QueueOptions{})
	if err != nil {
		return err
	}
	store, err := idempotency.NewPgStore(app.DB(), nil)
	if err != nil {
		return err
	}

	logger := app.Logger().WithField("module", "newsletter")
	sender, err := mail.NewSender(conf.Mail, logger.WithField("component", "mail"))
	if err != nil {
		return err
	}

	issueRepo := persistence.NewIssueRepository()
	app.RegisterServices(
		services.NewPublishService(store, issueRepo, queue),
		services.NewSubscriberService(persistence.NewSubscriberRepository(), &services.SubscriberServiceOptions{
			Sender:  sender,
			BaseURL: conf.BaseURL,
		}),
		services.NewUserService(persistence.NewUserRepository()),
	)

	app.RegisterControllers(
		controllers.NewHealthController(),
		controllers.NewNewsletterController(app),
		controllers.NewSubscriptionController(app),
	)

	if !conf.Delivery.Enabled {
		return nil
	}

	workers, err := delivery.NewPool(queue, persistence.NewIssueContentSource(app.DB(), issueRepo), sender, delivery.PoolOptions{
		Workers:             conf.Delivery.Workers,
		ObservePendingEvery: conf.Delivery.ObservePendingEvery,
		Worker: delivery.WorkerOptions{
			IdleInterval:  conf.Delivery.IdleInterval,
			ErrorInterval: conf.Delivery.ErrorInterval,
			SendTimeout:   conf.Delivery.SendTimeout,
			Logger:        logger.WithField("component", "delivery"),
		},
	})
	if err != nil {
		return err
	}
	app.RegisterBackgroundTasks(workers)

	return nil
}

func (m *Module) Name() string {
	return "newsletter"
}
