package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/computeoptimizer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/support"
)

// ClientFactory builds and caches AWS SDK clients per profile, region and
// service. One factory backs all backend adapters of a batch; it is not
// shared across concurrently running batches.
type ClientFactory struct {
	profile     string
	cfgCache    map[string]aws.Config
	clientCache map[string]interface{}
	mu          sync.Mutex
}

// NewClientFactory cria uma nova fábrica de clientes para o perfil dado.
func NewClientFactory(profile string) *ClientFactory {
	return &ClientFactory{
		profile:     profile,
		cfgCache:    make(map[string]aws.Config),
		clientCache: make(map[string]interface{}),
	}
}

// getConfig carrega (ou reutiliza) a configuração AWS para uma região.
// Chamado apenas com f.mu já adquirido.
func (f *ClientFactory) getConfig(ctx context.Context, region string) (aws.Config, error) {
	cacheKey := fmt.Sprintf("%s-%s", f.profile, region)
	if cfg, ok := f.cfgCache[cacheKey]; ok {
		return cfg, nil
	}

	var optFns []func(*config.LoadOptions) error
	if f.profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(f.profile))
	}
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}

	f.cfgCache[cacheKey] = cfg
	return cfg, nil
}

// getServiceClient retorna um cliente de serviço em cache ou cria um novo.
func (f *ClientFactory) getServiceClient(ctx context.Context, region, service string) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Cost Explorer, Support (Trusted Advisor) e Budgets só expõem
	// endpoint em us-east-1.
	switch service {
	case "costexplorer", "support", "budgets":
		region = "us-east-1"
	}

	cacheKey := fmt.Sprintf("%s-%s-%s", f.profile, region, service)
	if client, ok := f.clientCache[cacheKey]; ok {
		return client, nil
	}

	cfg, err := f.getConfig(ctx, region)
	if err != nil {
		return nil, err
	}

	var client interface{}
	switch service {
	case "costexplorer":
		client = costexplorer.NewFromConfig(cfg)
	case "budgets":
		client = budgets.NewFromConfig(cfg)
	case "athena":
		client = athena.NewFromConfig(cfg)
	case "support":
		client = support.NewFromConfig(cfg)
	case "computeoptimizer":
		client = computeoptimizer.NewFromConfig(cfg)
	case "ec2":
		client = ec2.NewFromConfig(cfg)
	case "lambda":
		client = lambda.NewFromConfig(cfg)
	case "rds":
		client = rds.NewFromConfig(cfg)
	case "s3":
		client = s3.NewFromConfig(cfg)
	case "sts":
		client = sts.NewFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported service: %s", service)
	}

	f.clientCache[cacheKey] = client
	return client, nil
}

func (f *ClientFactory) CostExplorer(ctx context.Context) (*costexplorer.Client, error) {
	c, err := f.getServiceClient(ctx, "", "costexplorer")
	if err != nil {
		return nil, err
	}
	return c.(*costexplorer.Client), nil
}

func (f *ClientFactory) Budgets(ctx context.Context) (*budgets.Client, error) {
	c, err := f.getServiceClient(ctx, "", "budgets")
	if err != nil {
		return nil, err
	}
	return c.(*budgets.Client), nil
}

func (f *ClientFactory) Athena(ctx context.Context, region string) (*athena.Client, error) {
	c, err := f.getServiceClient(ctx, region, "athena")
	if err != nil {
		return nil, err
	}
	return c.(*athena.Client), nil
}

func (f *ClientFactory) Support(ctx context.Context) (*support.Client, error) {
	c, err := f.getServiceClient(ctx, "", "support")
	if err != nil {
		return nil, err
	}
	return c.(*support.Client), nil
}

func (f *ClientFactory) ComputeOptimizer(ctx context.Context, region string) (*computeoptimizer.Client, error) {
	c, err := f.getServiceClient(ctx, region, "computeoptimizer")
	if err != nil {
		return nil, err
	}
	return c.(*computeoptimizer.Client), nil
}

func (f *ClientFactory) EC2(ctx context.Context, region string) (*ec2.Client, error) {
	c, err := f.getServiceClient(ctx, region, "ec2")
	if err != nil {
		return nil, err
	}
	return c.(*ec2.Client), nil
}

func (f *ClientFactory) Lambda(ctx context.Context, region string) (*lambda.Client, error) {
	c, err := f.getServiceClient(ctx, region, "lambda")
	if err != nil {
		return nil, err
	}
	return c.(*lambda.Client), nil
}

func (f *ClientFactory) RDS(ctx context.Context, region string) (*rds.Client, error) {
	c, err := f.getServiceClient(ctx, region, "rds")
	if err != nil {
		return nil, err
	}
	return c.(*rds.Client), nil
}

func (f *ClientFactory) S3(ctx context.Context, region string) (*s3.Client, error) {
	c, err := f.getServiceClient(ctx, region, "s3")
	if err != nil {
		return nil, err
	}
	return c.(*s3.Client), nil
}

func (f *ClientFactory) STS(ctx context.Context) (*sts.Client, error) {
	c, err := f.getServiceClient(ctx, "", "sts")
	if err != nil {
		return nil, err
	}
	return c.(*sts.Client), nil
}
