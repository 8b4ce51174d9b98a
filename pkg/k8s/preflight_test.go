package k8s_test

import (
	"context"
	"testing"

	"github.com/opendatahub-io/maasctl/pkg/k8s"
	"github.com/opendatahub-io/maasctl/pkg/k8s/k8stest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authenticationv1 "k8s.io/api/authentication/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func reviewAs(clientset *fake.Clientset, username string, err error) {
	clientset.PrependReactor("create", "selfsubjectreviews",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			if err != nil {
				return true, nil, err
			}

			review := &authenticationv1.SelfSubjectReview{}
			review.Status.UserInfo.Username = username

			return true, review, nil
		})
}

func TestWhoAmI(t *testing.T) {
	t.Parallel()

	clientset := fake.NewClientset()
	reviewAs(clientset, "kube:admin", nil)

	user, err := k8s.WhoAmI(context.Background(), clientset)
	require.NoError(t, err)
	assert.Equal(t, "kube:admin", user)
}

func TestWhoAmINotLoggedIn(t *testing.T) {
	t.Parallel()

	unauthorized := apierrors.NewUnauthorized("token expired")

	for name, tc := range map[string]struct {
		username string
		err      error
	}{
		"rejected":  {err: unauthorized},
		"anonymous": {username: "system:anonymous"},
		"empty":     {},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			clientset := fake.NewClientset()
			reviewAs(clientset, tc.username, tc.err)

			_, err := k8s.WhoAmI(context.Background(), clientset)
			require.ErrorIs(t, err, k8s.ErrNotLoggedIn)
		})
	}
}

func TestWhoAmIServerError(t *testing.T) {
	t.Parallel()

	clientset := fake.NewClientset()
	reviewAs(clientset, "", apierrors.NewInternalError(assert.AnError))

	_, err := k8s.WhoAmI(context.Background(), clientset)
	require.Error(t, err)
	require.NotErrorIs(t, err, k8s.ErrNotLoggedIn)
}

func TestRequireCRDs(t *testing.T) {
	t.Parallel()

	fakes := k8stest.NewClients(&apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: "gateways.gateway.networking.k8s.io"},
	})

	ctx := context.Background()

	require.NoError(t, k8s.RequireCRDs(ctx, fakes.Runtime, "gateways.gateway.networking.k8s.io"))

	err := k8s.RequireCRDs(ctx, fakes.Runtime,
		"gateways.gateway.networking.k8s.io", "authpolicies.kuadrant.io", "httproutes.gateway.networking.k8s.io")
	require.ErrorIs(t, err, k8s.ErrRequiredCRDMissing)
	assert.Contains(t, err.Error(), "authpolicies.kuadrant.io, httproutes.gateway.networking.k8s.io")
}

func TestRequireCRDsNoneNeeded(t *testing.T) {
	t.Parallel()

	require.NoError(t, k8s.RequireCRDs(context.Background(), k8stest.NewClients().Runtime))
}
