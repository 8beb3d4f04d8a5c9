package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"

	"github.com/finopsworks/aws-cost-reports-go/internal/domain/entity"
	"github.com/finopsworks/aws-cost-reports-go/internal/domain/repository"
	"github.com/finopsworks/aws-cost-reports-go/internal/shared/types"
)

// ScopeResolver preenche as partes não configuradas do escopo a partir do
// ambiente: identidade do chamador para a conta, regiões habilitadas para
// a lista de regiões.
type ScopeResolver struct {
	clients       *ClientFactory
	defaultRegion string
	log           logrus.FieldLogger
}

// NewScopeResolver cria um resolvedor de escopo.
func NewScopeResolver(clients *ClientFactory, defaultRegion string, log logrus.FieldLogger) repository.ScopeResolver {
	return &ScopeResolver{clients: clients, defaultRegion: defaultRegion, log: log}
}

// ResolveScope completa contas, regiões e cliente do escopo.
func (r *ScopeResolver) ResolveScope(ctx context.Context, scope entity.RequestScope) (entity.RequestScope, error) {
	out := scope.Canonical()

	if len(out.Accounts) == 0 {
		stsClient, err := r.clients.STS(ctx)
		if err != nil {
			return out, err
		}
		ident, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return out, &types.ConfigurationError{
				Field:  "accounts",
				Reason: fmt.Sprintf("no accounts configured and caller identity lookup failed: %v", err),
			}
		}
		out.Accounts = []string{aws.ToString(ident.Account)}
		r.log.WithField("account", out.Accounts[0]).Debug("scope account resolved from caller identity")
	}

	if len(out.Regions) == 0 {
		regions, err := r.accessibleRegions(ctx)
		if err != nil {
			if r.defaultRegion == "" {
				return out, &types.ConfigurationError{
					Field:  "regions",
					Reason: fmt.Sprintf("no regions configured and region discovery failed: %v", err),
				}
			}
			r.log.WithError(err).Warning("region discovery failed, falling back to the default region")
			regions = []string{r.defaultRegion}
		}
		out.Regions = regions
	}

	if out.Customer == "" {
		out.Customer = "default"
	}

	return out.Canonical(), nil
}

// accessibleRegions lista as regiões habilitadas para a conta.
func (r *ScopeResolver) accessibleRegions(ctx context.Context) ([]string, error) {
	ec2Client, err := r.clients.EC2(ctx, r.defaultRegion)
	if err != nil {
		return nil, err
	}

	resp, err := ec2Client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("error describing regions: %w", err)
	}

	regions := make([]string, 0, len(resp.Regions))
	for _, region := range resp.Regions {
		regions = append(regions, aws.ToString(region.RegionName))
	}
	return regions, nil
}
