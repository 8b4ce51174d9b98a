package k8s

import (
	"context"
	"fmt"
	"strings"

	authenticationv1 "k8s.io/api/authentication/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// WhoAmI returns the username the cluster authenticates the current
// credentials as. Rejected or anonymous credentials yield ErrNotLoggedIn.
func WhoAmI(ctx context.Context, clientset kubernetes.Interface) (string, error) {
	review, err := clientset.AuthenticationV1().SelfSubjectReviews().
		Create(ctx, &authenticationv1.SelfSubjectReview{}, metav1.CreateOptions{})
	if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
		return "", fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}

	if err != nil {
		return "", fmt.Errorf("review current identity: %w", err)
	}

	username := review.Status.UserInfo.Username
	if username == "" || username == "system:anonymous" {
		return "", fmt.Errorf("%w: the API server sees an anonymous user", ErrNotLoggedIn)
	}

	return username, nil
}

// RequireCRDs returns ErrRequiredCRDMissing naming every CRD of names that
// is not installed.
func RequireCRDs(ctx context.Context, client ctrlclient.Reader, names ...string) error {
	var missing []string

	for _, name := range names {
		var crd apiextensionsv1.CustomResourceDefinition

		err := client.Get(ctx, ctrlclient.ObjectKey{Name: name}, &crd)
		if apierrors.IsNotFound(err) {
			missing = append(missing, name)

			continue
		}

		if err != nil {
			return fmt.Errorf("get CRD %s: %w", name, err)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRequiredCRDMissing, strings.Join(missing, ", "))
	}

	return nil
}
